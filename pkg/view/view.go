package view

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/ritzau/netview/pkg/force"
	"github.com/ritzau/netview/pkg/graph"
	"github.com/ritzau/netview/pkg/interact"
	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/logging"
	"github.com/ritzau/netview/pkg/model"
	"github.com/ritzau/netview/pkg/pubsub"
	"github.com/ritzau/netview/pkg/render"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrUnmounted is returned by every operation on a closed view
var ErrUnmounted = errors.New("view is unmounted")

// Config holds everything a view derives its layout and behavior from
type Config struct {
	Policy        layout.Policy
	Params        force.Params
	Interaction   interact.Options
	Width         float64
	Height        float64
	FrameInterval time.Duration
}

// DefaultConfig returns a desktop-sized view at roughly 60 frames per second
func DefaultConfig() Config {
	return Config{
		Policy:        layout.DefaultPolicy(),
		Params:        force.DefaultParams(),
		Interaction:   interact.DefaultOptions(),
		Width:         1024,
		Height:        768,
		FrameInterval: 16 * time.Millisecond,
	}
}

// Sink receives what a view produces
type Sink interface {
	Frame(viewID string, scene render.Scene)
	Navigate(viewID string, nav interact.Navigation)
	Status(viewID string, status pubsub.ViewStatus)
}

// Option customizes a View
type Option func(*View)

// WithFrames drives the frame loop from ch instead of a ticker
func WithFrames(ch <-chan time.Time) Option {
	return func(v *View) {
		v.frames = ch
	}
}

// WithSeed makes every engine the view creates seed from a fixed source
func WithSeed(seed int64) Option {
	return func(v *View) {
		v.seed = &seed
	}
}

// Manual disables the frame loop; the caller advances the view with Step or
// Settle. Headless rendering uses this.
func Manual() Option {
	return func(v *View) {
		v.manual = true
	}
}

// View is one mounted graph view. It owns a snapshot, the engine laid out
// over its visible part and the interaction controller. A single frame loop
// goroutine drains queued input, ticks the engine and publishes a scene.
type View struct {
	id     string
	cfg    Config
	sink   Sink
	frames <-chan time.Time
	seed   *int64
	manual bool

	// lifecycle serializes Load, SetShowAll and Close so loop restarts never overlap
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	mu        sync.Mutex
	closed    bool
	mode      Mode
	resp      *model.NetworkResponse
	snap      *model.Snapshot
	sel       layout.Selection
	visible   *model.Snapshot
	showAll   bool
	engine    *force.Engine
	index     *graph.Index
	ctrl      *interact.Controller
	inbox     []interact.Event
	navs      []interact.Navigation
	dirty     bool
	lastState force.State
	frameNo   int
}

// New creates an empty view. Nothing runs until the first Load.
func New(id string, cfg Config, sink Sink, opts ...Option) *View {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultConfig().FrameInterval
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultConfig().Width, DefaultConfig().Height
	}
	if sink == nil {
		sink = discard{}
	}
	v := &View{id: id, cfg: cfg, sink: sink}
	for _, opt := range opts {
		opt(v)
	}
	v.ctrl = interact.NewController(nil, cfg.Policy, cfg.Width, cfg.Height,
		interact.NavigatorFunc(v.queueNavigation), cfg.Interaction)
	return v
}

// ID returns the view id
func (v *View) ID() string {
	return v.id
}

// queueNavigation runs inside Controller.Handle with v.mu held
func (v *View) queueNavigation(n interact.Navigation) {
	v.navs = append(v.navs, n)
}

// Load replaces the snapshot. The running simulation is stopped before the
// new one starts; the view transform survives the replacement.
func (v *View) Load(resp *model.NetworkResponse, mode Mode) error {
	if resp == nil {
		resp = &model.NetworkResponse{}
	}
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	if v.isClosed() {
		return ErrUnmounted
	}
	v.stopLoop()

	snap := model.FromResponse(resp)
	showAll := mode.initialShowAll(resp, snap, v.cfg.Policy.TopN)

	v.mu.Lock()
	v.mode = mode
	v.resp = resp
	v.snap = snap
	v.showAll = showAll
	v.rebuildLocked()
	status := v.statusLocked("loaded", "network loaded")
	v.mu.Unlock()

	if snap.Dropped() > 0 {
		logging.Debug("dropped dangling edges", "view", v.id, "dropped", snap.Dropped())
	}
	logging.Info("view loaded", "view", v.id, "mode", mode.String(),
		"nodes", status.Nodes, "edges", status.Edges, "hidden", status.Hidden)
	v.sink.Status(v.id, status)

	v.startLoop()
	return nil
}

// SetShowAll flips the top-N toggle and restarts the layout over the new
// visible set
func (v *View) SetShowAll(showAll bool) error {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	if v.isClosed() {
		return ErrUnmounted
	}

	v.mu.Lock()
	if v.snap == nil || v.showAll == showAll {
		v.showAll = showAll
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	v.stopLoop()

	v.mu.Lock()
	v.showAll = showAll
	v.rebuildLocked()
	status := v.statusLocked("loaded", "visibility changed")
	v.mu.Unlock()

	logging.Info("view visibility changed", "view", v.id, "showAll", showAll, "nodes", status.Nodes)
	v.sink.Status(v.id, status)

	v.startLoop()
	return nil
}

// rebuildLocked derives the visible selection and a fresh engine. The old
// engine must already be unreachable from the frame loop.
func (v *View) rebuildLocked() {
	if v.engine != nil {
		v.engine.Stop()
	}

	v.sel = v.cfg.Policy.Visible(v.snap, v.showAll)
	v.visible = v.sel.Snapshot()
	v.index = graph.NewIndex(v.visible)

	var opts []force.Option
	if v.seed != nil {
		opts = append(opts, force.WithRand(rand.New(rand.NewSource(*v.seed))))
	}
	v.engine = force.New(v.visible, v.ctrl.Profile(), v.ctrl.Center(), v.cfg.Params, opts...)
	v.ctrl.Attach(v.engine)
	v.lastState = v.engine.State()
	v.dirty = true
}

// Dispatch queues input events. They are applied at the start of the next
// frame, before the engine ticks.
func (v *View) Dispatch(events ...interact.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrUnmounted
	}
	v.inbox = append(v.inbox, events...)
	return nil
}

// Step runs one frame: drain input, tick, publish. It reports whether a
// scene was published.
func (v *View) Step() bool {
	v.mu.Lock()
	if v.closed || v.engine == nil {
		v.mu.Unlock()
		return false
	}

	handled := false
	inbox := v.inbox
	v.inbox = nil
	for _, ev := range inbox {
		if v.ctrl.Handle(ev) != interact.IntentNone {
			handled = true
		}
	}

	// a drag reheats during Handle; the tick below moves it on to Running
	reheated := v.engine.State() == force.Reheated && v.lastState != force.Reheated
	ticked := v.engine.Tick()
	state := v.engine.State()
	settled := state == force.Settled && v.lastState != force.Settled
	v.lastState = state

	publish := ticked || handled || v.dirty
	v.dirty = false

	var scene render.Scene
	if publish {
		scene = v.sceneLocked()
		v.frameNo++
	}
	navs := v.navs
	v.navs = nil

	var statuses []pubsub.ViewStatus
	if reheated {
		statuses = append(statuses, v.statusLocked(force.Reheated.String(), "simulation reheated"))
	}
	if settled {
		statuses = append(statuses, v.statusLocked(force.Settled.String(), "simulation settled"))
	}
	v.mu.Unlock()

	for _, n := range navs {
		v.sink.Navigate(v.id, n)
	}
	for _, status := range statuses {
		logging.Debug("view simulation state", "view", v.id, "state", status.State)
		v.sink.Status(v.id, status)
	}
	if publish {
		v.sink.Frame(v.id, scene)
	}
	return publish
}

// Settle steps the view until the engine settles or maxFrames frames ran.
// It returns the number of frames stepped.
func (v *View) Settle(maxFrames int) int {
	n := 0
	for n < maxFrames {
		if v.State() == force.Settled && !v.pending() {
			break
		}
		v.Step()
		n++
	}
	return n
}

func (v *View) pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.inbox) > 0 || v.dirty
}

// Scene builds a scene from the current state
func (v *View) Scene() (render.Scene, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return render.Scene{}, ErrUnmounted
	}
	return v.sceneLocked(), nil
}

func (v *View) sceneLocked() render.Scene {
	w, h := v.ctrl.Viewport()
	frame := render.Frame{
		Width:     w,
		Height:    h,
		Transform: v.ctrl.Transform(),
		Hovered:   v.ctrl.Hovered(),
	}
	if v.engine != nil {
		frame.State = v.engine.State()
		frame.Nodes = v.visible.Nodes()
		frame.Edges = v.visible.Edges()
		frame.Bodies = v.engine
		frame.Index = v.index
		frame.Hidden = v.sel.Hidden
		frame.Dropped = v.snap.Dropped()
	}
	return render.Build(frame)
}

// Status describes the loaded network
func (v *View) Status() pubsub.ViewStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := "empty"
	switch {
	case v.closed:
		state = "unmounted"
	case v.engine != nil:
		state = v.engine.State().String()
	}
	return v.statusLocked(state, "")
}

func (v *View) statusLocked(state, message string) pubsub.ViewStatus {
	status := pubsub.ViewStatus{State: state, Message: message, ShowAll: v.showAll}
	if v.snap != nil {
		status.Nodes = len(v.sel.Nodes)
		status.Edges = len(v.sel.Edges)
		status.Hidden = v.sel.Hidden
		status.Dropped = v.snap.Dropped()
	}
	if v.resp != nil {
		status.Focal = v.resp.FocalEntity
		status.Mentions = v.resp.MentionCount
	}
	return status
}

// State returns the engine state, Settled when nothing is loaded
func (v *View) State() force.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine == nil {
		return force.Settled
	}
	return v.engine.State()
}

// Alpha returns the engine's activity level, 0 when nothing is loaded
func (v *View) Alpha() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine == nil {
		return 0
	}
	return v.engine.Alpha()
}

// Profile returns the layout profile the engine runs with
func (v *View) Profile() layout.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine == nil {
		return v.ctrl.Profile()
	}
	return v.engine.Profile()
}

// ShowAll returns the top-N toggle
func (v *View) ShowAll() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.showAll
}

// Body returns the simulated body of a visible node
func (v *View) Body(id string) (force.Body, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine == nil {
		return force.Body{}, false
	}
	return v.engine.Body(id)
}

// Center returns the world point the layout is pulled toward
func (v *View) Center() r2.Vec {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctrl.Center()
}

// Frames returns how many scenes were published
func (v *View) Frames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frameNo
}

// Running reports whether the frame loop is active
func (v *View) Running() bool {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()
	return v.done != nil
}

// Close unmounts the view. The frame loop has exited when Close returns.
func (v *View) Close() error {
	v.lifecycle.Lock()
	defer v.lifecycle.Unlock()

	if v.isClosed() {
		return nil
	}
	v.stopLoop()

	v.mu.Lock()
	v.closed = true
	if v.engine != nil {
		v.engine.Stop()
	}
	v.inbox = nil
	status := v.statusLocked("unmounted", "view closed")
	v.mu.Unlock()

	logging.Info("view unmounted", "view", v.id)
	v.sink.Status(v.id, status)
	return nil
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// startLoop must be called with lifecycle held
func (v *View) startLoop() {
	if v.manual {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	v.cancel = cancel
	v.done = done
	go v.run(ctx, done)
}

// stopLoop cancels the loop and waits for it to exit. Must be called with
// lifecycle held and v.mu not held.
func (v *View) stopLoop() {
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done
	v.cancel = nil
	v.done = nil
}

func (v *View) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	frames := v.frames
	if frames == nil {
		ticker := time.NewTicker(v.cfg.FrameInterval)
		defer ticker.Stop()
		frames = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-frames:
			if ctx.Err() != nil {
				return
			}
			v.Step()
		}
	}
}

type discard struct{}

func (discard) Frame(string, render.Scene)           {}
func (discard) Navigate(string, interact.Navigation) {}
func (discard) Status(string, pubsub.ViewStatus)     {}
