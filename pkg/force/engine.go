package force

import (
	"math"
	"math/rand"
	"time"

	"github.com/ritzau/netview/pkg/graph"
	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/logging"
	"github.com/ritzau/netview/pkg/model"
	"gonum.org/v1/gonum/spatial/r2"
)

// Body is the simulated state of one node
type Body struct {
	ID              string  `json:"id"`
	Pos             r2.Vec  `json:"pos"`
	Vel             r2.Vec  `json:"vel"`
	Radius          float64 `json:"radius"`
	CollisionRadius float64 `json:"collisionRadius"`
	Pinned          bool    `json:"pinned"`
	Pin             r2.Vec  `json:"pin"`

	weight float64 // normalized, kept to re-derive radii on restart
}

type link struct {
	source, target int
	strength       float64
	bias           float64
}

// Engine is a tick-driven force simulation over one snapshot. It owns every
// body position; the only outside writes go through Pin and Unpin.
// Engine is not safe for concurrent use; the view's frame loop serializes access.
type Engine struct {
	params  Params
	profile layout.Profile
	center  r2.Vec

	bodies []Body
	index  map[string]int
	links  []link

	alpha       float64
	alphaTarget float64
	state       State
	ticks       int
	stopped     bool

	rng *rand.Rand
}

// Option customizes an Engine
type Option func(*Engine)

// WithRand seeds the engine from a fixed source (tests use this)
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// New seeds an engine for the snapshot. Radii come from the profile and the
// layout is centered on center.
func New(snap *model.Snapshot, profile layout.Profile, center r2.Vec, params Params, opts ...Option) *Engine {
	e := &Engine{
		params:  params.withDefaults(),
		profile: profile,
		center:  center,
		index:   make(map[string]int, snap.NodeCount()),
		alpha:   1,
		state:   Seeding,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e.seed(snap)
	e.buildLinks(snap)

	if len(e.bodies) == 0 {
		e.state = Settled
	}

	logging.Debug("force engine seeded", "bodies", len(e.bodies), "links", len(e.links), "profile", string(profile.Class))
	return e
}

// seed places bodies on a phyllotaxis spiral around the center, one connected
// component after another, with a little random jitter
func (e *Engine) seed(snap *model.Snapshot) {
	initialAngle := math.Pi * (3 - math.Sqrt(5))

	nodes := make(map[string]model.Node, snap.NodeCount())
	for _, n := range snap.Nodes() {
		nodes[n.ID] = n
	}

	for _, comp := range graph.NewIndex(snap).Components() {
		for _, id := range comp {
			n := nodes[id]
			i := float64(len(e.bodies))
			r := e.params.InitialRadius * math.Sqrt(0.5+i)
			a := i * initialAngle
			offset := r2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
			jitter := r2.Vec{
				X: (e.rng.Float64()*2 - 1) * e.params.Jitter,
				Y: (e.rng.Float64()*2 - 1) * e.params.Jitter,
			}

			e.index[id] = len(e.bodies)
			e.bodies = append(e.bodies, Body{
				ID:              id,
				Pos:             r2.Add(e.center, r2.Add(offset, jitter)),
				Radius:          e.profile.Radius(n.NormalizedWeight),
				CollisionRadius: e.profile.CollisionRadius(n.NormalizedWeight),
				weight:          n.NormalizedWeight,
			})
		}
	}
}

// buildLinks resolves edges to body indices. Self-loops carry no force.
func (e *Engine) buildLinks(snap *model.Snapshot) {
	count := make([]int, len(e.bodies))
	var links []link
	for _, edge := range snap.Edges() {
		s, t := e.index[edge.Source], e.index[edge.Target]
		if s == t {
			continue
		}
		count[s]++
		count[t]++
		links = append(links, link{source: s, target: t})
	}

	for i := range links {
		l := &links[i]
		cs, ct := float64(count[l.source]), float64(count[l.target])
		l.bias = cs / (cs + ct)
		if e.params.LinkStrength > 0 {
			l.strength = e.params.LinkStrength
		} else {
			l.strength = 1 / math.Min(cs, ct)
		}
	}
	e.links = links
}

// Tick advances the simulation one step. It returns false when nothing moved
// because the engine is settled or stopped.
func (e *Engine) Tick() bool {
	if e.stopped || e.state == Settled || len(e.bodies) == 0 {
		return false
	}
	if e.state != Running {
		e.transition(Running)
	}

	e.alpha += (e.alphaTarget - e.alpha) * e.params.AlphaDecay

	e.applyLinks()
	e.applyCharge()
	e.applyCollide()
	e.applyCenter()
	e.integrate()

	e.ticks++
	if e.alphaTarget == 0 && (e.alpha < e.params.AlphaMin || e.ticks >= e.params.MaxTicks) {
		e.transition(Settled)
	}
	return true
}

// integrate damps velocities and moves free bodies. Pinned bodies are held
// exactly at their pin with zero velocity.
func (e *Engine) integrate() {
	keep := 1 - e.params.VelocityDecay
	for i := range e.bodies {
		b := &e.bodies[i]
		if b.Pinned {
			b.Pos = b.Pin
			b.Vel = r2.Vec{}
			continue
		}
		b.Vel = r2.Scale(keep, b.Vel)
		b.Pos = r2.Add(b.Pos, b.Vel)
	}
}

func (e *Engine) transition(to State) {
	if e.state == to {
		return
	}
	logging.Debug("force engine state", "from", e.state.String(), "to", to.String(), "alpha", e.alpha, "ticks", e.ticks)
	e.state = to
}

// Pin fixes a body at p until Unpin. Unknown ids are ignored.
func (e *Engine) Pin(id string, p r2.Vec) {
	i, ok := e.index[id]
	if !ok {
		return
	}
	b := &e.bodies[i]
	b.Pinned = true
	b.Pin = p
	b.Pos = p
	b.Vel = r2.Vec{}
}

// Unpin releases a body back to the forces
func (e *Engine) Unpin(id string) {
	if i, ok := e.index[id]; ok {
		e.bodies[i].Pinned = false
	}
}

// Reheat raises the alpha target so the layout responds to a drag
func (e *Engine) Reheat() {
	if e.stopped || len(e.bodies) == 0 {
		return
	}
	e.alphaTarget = e.params.ReheatTarget
	e.ticks = 0
	e.transition(Reheated)
}

// Cool drops the alpha target back to zero so the layout can settle again
func (e *Engine) Cool() {
	e.alphaTarget = 0
	e.ticks = 0
}

// Restart re-derives radii from a new profile, recenters and resets alpha to 1.
// Positions and pins are kept.
func (e *Engine) Restart(profile layout.Profile, center r2.Vec) {
	if e.stopped {
		return
	}
	e.profile = profile
	e.center = center
	for i := range e.bodies {
		b := &e.bodies[i]
		b.Radius = profile.Radius(b.weight)
		b.CollisionRadius = profile.CollisionRadius(b.weight)
	}
	e.alpha = 1
	e.ticks = 0
	if len(e.bodies) > 0 {
		e.transition(Running)
	}
	logging.Debug("force engine restarted", "profile", string(profile.Class), "center", center)
}

// Recenter moves the centering target without touching anything else
func (e *Engine) Recenter(center r2.Vec) {
	e.center = center
}

// Stop tears the engine down. Later ticks do nothing.
func (e *Engine) Stop() {
	e.stopped = true
}

// Stopped returns true after Stop
func (e *Engine) Stopped() bool {
	return e.stopped
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return e.state
}

// Alpha returns the current activity level
func (e *Engine) Alpha() float64 {
	return e.alpha
}

// Ticks returns the number of ticks since the last (re)start
func (e *Engine) Ticks() int {
	return e.ticks
}

// Profile returns the layout profile the engine currently runs with
func (e *Engine) Profile() layout.Profile {
	return e.profile
}

// Center returns the centering target
func (e *Engine) Center() r2.Vec {
	return e.center
}

// Len returns the number of bodies
func (e *Engine) Len() int {
	return len(e.bodies)
}

// Body returns a copy of the body for id
func (e *Engine) Body(id string) (Body, bool) {
	i, ok := e.index[id]
	if !ok {
		return Body{}, false
	}
	return e.bodies[i], true
}

// Bodies returns a copy of every body
func (e *Engine) Bodies() []Body {
	out := make([]Body, len(e.bodies))
	copy(out, e.bodies)
	return out
}

// KineticEnergy is the sum of squared body speeds
func (e *Engine) KineticEnergy() float64 {
	var sum float64
	for _, b := range e.bodies {
		sum += r2.Norm2(b.Vel)
	}
	return sum
}

// BodyAt returns the topmost body whose visual circle contains p
func (e *Engine) BodyAt(p r2.Vec) (string, bool) {
	for i := len(e.bodies) - 1; i >= 0; i-- {
		b := e.bodies[i]
		if r2.Norm(r2.Sub(p, b.Pos)) <= b.Radius {
			return b.ID, true
		}
	}
	return "", false
}
