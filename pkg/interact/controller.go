package interact

import (
	"math"
	"time"

	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/logging"
	"gonum.org/v1/gonum/spatial/r2"
)

// Simulation is the part of the force engine the controller drives
type Simulation interface {
	Pin(id string, p r2.Vec)
	Unpin(id string)
	Reheat()
	Cool()
	Restart(profile layout.Profile, center r2.Vec)
	Recenter(center r2.Vec)
	BodyAt(p r2.Vec) (string, bool)
}

// Navigation is emitted when a node is clicked
type Navigation struct {
	EntityID string `json:"entityId"`
}

// Navigator receives navigation events
type Navigator interface {
	Navigate(Navigation)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(Navigation)

func (f NavigatorFunc) Navigate(n Navigation) { f(n) }

// Intent is what the controller made of an event
type Intent int

const (
	IntentNone Intent = iota
	IntentPress
	IntentDragStart
	IntentDragMove
	IntentDragEnd
	IntentClick
	IntentPan
	IntentZoom
	IntentHover
	IntentResize
	IntentRestart
)

var intentNames = map[Intent]string{
	IntentNone:      "none",
	IntentPress:     "press",
	IntentDragStart: "dragStart",
	IntentDragMove:  "dragMove",
	IntentDragEnd:   "dragEnd",
	IntentClick:     "click",
	IntentPan:       "pan",
	IntentZoom:      "zoom",
	IntentHover:     "hover",
	IntentResize:    "resize",
	IntentRestart:   "restart",
}

func (i Intent) String() string {
	return intentNames[i]
}

// Options tune gesture recognition
type Options struct {
	DragThreshold    float64       `koanf:"drag_threshold"`     // screen px before a press becomes a drag
	ClickMaxDuration time.Duration `koanf:"click_max_duration"` // longer presses never navigate
	WheelSensitivity float64       `koanf:"wheel_sensitivity"`  // zoom factor exponent per wheel unit
}

// DefaultOptions returns the stock gesture thresholds
func DefaultOptions() Options {
	return Options{
		DragThreshold:    4,
		ClickMaxDuration: 500 * time.Millisecond,
		WheelSensitivity: 0.002,
	}
}

type gestureKind int

const (
	gestureIdle gestureKind = iota
	gesturePress
	gestureDrag
	gesturePan
)

type gesture struct {
	kind   gestureKind
	nodeID string
	start  r2.Vec
	last   r2.Vec
	at     time.Time
}

// Controller turns device input into pin updates, view transform changes and
// navigation events. It owns the transform; node positions belong to the
// simulation and are only touched through Pin/Unpin while a drag is active.
type Controller struct {
	sim       Simulation
	policy    layout.Policy
	nav       Navigator
	opts      Options
	transform Transform
	width     float64
	height    float64
	class     layout.Class
	gesture   gesture
	hovered   string
	now       func() time.Time
}

// NewController creates a controller for a viewport of the given size
func NewController(sim Simulation, policy layout.Policy, width, height float64, nav Navigator, opts Options) *Controller {
	if nav == nil {
		nav = NavigatorFunc(func(Navigation) {})
	}
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultOptions().DragThreshold
	}
	if opts.ClickMaxDuration <= 0 {
		opts.ClickMaxDuration = DefaultOptions().ClickMaxDuration
	}
	if opts.WheelSensitivity <= 0 {
		opts.WheelSensitivity = DefaultOptions().WheelSensitivity
	}
	return &Controller{
		sim:       sim,
		policy:    policy,
		nav:       nav,
		opts:      opts,
		transform: Identity(),
		width:     width,
		height:    height,
		class:     policy.ClassFor(width),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for events without timestamps
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Attach points the controller at a new simulation after a snapshot
// replacement. Gesture and hover state belong to the old nodes and are dropped;
// the view transform is kept.
func (c *Controller) Attach(sim Simulation) {
	c.sim = sim
	c.gesture = gesture{}
	c.hovered = ""
}

// Transform returns the current pan/zoom
func (c *Controller) Transform() Transform {
	return c.transform
}

// Hovered returns the hovered node id, or ""
func (c *Controller) Hovered() string {
	return c.hovered
}

// Dragging returns the id of the node being dragged, or ""
func (c *Controller) Dragging() string {
	if c.gesture.kind == gestureDrag {
		return c.gesture.nodeID
	}
	return ""
}

// Viewport returns the current viewport size
func (c *Controller) Viewport() (float64, float64) {
	return c.width, c.height
}

// Center is the world point the layout is pulled toward
func (c *Controller) Center() r2.Vec {
	return r2.Vec{X: c.width / 2, Y: c.height / 2}
}

// Class returns the viewport class the parameters were derived for
func (c *Controller) Class() layout.Class {
	return c.class
}

// Profile returns the layout profile for the current viewport
func (c *Controller) Profile() layout.Profile {
	return c.policy.ProfileFor(c.width)
}

// Handle applies one event and reports what it was interpreted as
func (c *Controller) Handle(ev Event) Intent {
	var intent Intent
	switch e := ev.(type) {
	case PointerDown:
		intent = c.pointerDown(r2.Vec{X: e.X, Y: e.Y}, e.NodeID, c.stamp(e.At))
	case PointerMove:
		intent = c.pointerMove(r2.Vec{X: e.X, Y: e.Y})
	case PointerUp:
		intent = c.pointerUp(r2.Vec{X: e.X, Y: e.Y}, c.stamp(e.At))
	case PointerCancel:
		intent = c.cancel()
	case Wheel:
		factor := math.Exp2(-e.DeltaY * c.opts.WheelSensitivity)
		c.transform = c.transform.ZoomAt(r2.Vec{X: e.X, Y: e.Y}, factor)
		intent = IntentZoom
	case Pinch:
		c.transform = c.transform.ZoomAt(r2.Vec{X: e.X, Y: e.Y}, e.Scale)
		intent = IntentZoom
	case HoverEnter:
		c.hovered = e.NodeID
		intent = IntentHover
	case HoverLeave:
		if c.hovered == e.NodeID || e.NodeID == "" {
			c.hovered = ""
		}
		intent = IntentHover
	case Resize:
		intent = c.resize(e.Width, e.Height)
	}

	if intent != IntentNone && intent != IntentDragMove && intent != IntentPan {
		logging.Trace("input handled", "event", Name(ev), "intent", intent.String())
	}
	return intent
}

func (c *Controller) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return c.now()
	}
	return at
}

func (c *Controller) pointerDown(p r2.Vec, nodeID string, at time.Time) Intent {
	// a lost pointer-up must not leave the previous drag pinned
	c.releaseDrag()
	if nodeID == "" && c.sim != nil {
		nodeID, _ = c.sim.BodyAt(c.transform.Invert(p))
	}
	if nodeID == "" {
		c.gesture = gesture{kind: gesturePan, start: p, last: p, at: at}
		return IntentPress
	}
	c.gesture = gesture{kind: gesturePress, nodeID: nodeID, start: p, last: p, at: at}
	return IntentPress
}

func (c *Controller) pointerMove(p r2.Vec) Intent {
	g := &c.gesture
	switch g.kind {
	case gesturePress:
		if r2.Norm(r2.Sub(p, g.start)) < c.opts.DragThreshold {
			return IntentNone
		}
		g.kind = gestureDrag
		g.last = p
		if c.sim != nil {
			c.sim.Reheat()
			c.sim.Pin(g.nodeID, c.transform.Invert(p))
		}
		logging.Debug("drag started", "node", g.nodeID)
		return IntentDragStart
	case gestureDrag:
		g.last = p
		if c.sim != nil {
			c.sim.Pin(g.nodeID, c.transform.Invert(p))
		}
		return IntentDragMove
	case gesturePan:
		c.transform = c.transform.Translate(r2.Sub(p, g.last))
		g.last = p
		return IntentPan
	}
	return IntentNone
}

func (c *Controller) pointerUp(p r2.Vec, at time.Time) Intent {
	g := c.gesture
	c.gesture = gesture{}

	switch g.kind {
	case gestureDrag:
		c.endDrag(g.nodeID)
		return IntentDragEnd
	case gesturePress:
		moved := r2.Norm(r2.Sub(p, g.start))
		if moved >= c.opts.DragThreshold || at.Sub(g.at) > c.opts.ClickMaxDuration {
			return IntentNone
		}
		logging.Debug("node clicked", "node", g.nodeID)
		c.nav.Navigate(Navigation{EntityID: g.nodeID})
		return IntentClick
	case gesturePan:
		c.transform = c.transform.Translate(r2.Sub(p, g.last))
		return IntentPan
	}
	return IntentNone
}

// cancel drops the gesture. A drag is released; a press never becomes a click.
func (c *Controller) cancel() Intent {
	if c.releaseDrag() {
		return IntentDragEnd
	}
	c.gesture = gesture{}
	return IntentNone
}

// releaseDrag ends an active drag, reporting whether there was one
func (c *Controller) releaseDrag() bool {
	if c.gesture.kind != gestureDrag {
		return false
	}
	id := c.gesture.nodeID
	c.gesture = gesture{}
	c.endDrag(id)
	return true
}

func (c *Controller) endDrag(id string) {
	if c.sim != nil {
		c.sim.Unpin(id)
		c.sim.Cool()
	}
	logging.Debug("drag ended", "node", id)
}

// resize recenters the layout. Crossing the breakpoint restarts the
// simulation with the other class's radius and force parameters.
func (c *Controller) resize(width, height float64) Intent {
	if width <= 0 || height <= 0 {
		return IntentNone
	}
	c.width, c.height = width, height

	class := c.policy.ClassFor(width)
	if class != c.class {
		logging.Info("viewport crossed breakpoint", "from", string(c.class), "to", string(class), "width", width)
		c.class = class
		if c.sim != nil {
			c.sim.Restart(c.policy.ProfileFor(width), c.Center())
		}
		return IntentRestart
	}

	if c.sim != nil {
		c.sim.Recenter(c.Center())
	}
	return IntentResize
}
