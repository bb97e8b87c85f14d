package interact

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is a discrete device input delivered to the controller
type Event interface {
	eventName() string
}

// PointerDown starts a gesture. NodeID may be left empty, in which case the
// controller hit-tests the position against the simulation.
type PointerDown struct {
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	NodeID string    `json:"nodeId,omitempty"`
	At     time.Time `json:"at,omitempty"`
}

// PointerMove continues a gesture
type PointerMove struct {
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	At time.Time `json:"at,omitempty"`
}

// PointerUp ends a gesture
type PointerUp struct {
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	At time.Time `json:"at,omitempty"`
}

// PointerCancel aborts a gesture without a click, as when the browser takes
// over the pointer or the window loses focus
type PointerCancel struct {
	At time.Time `json:"at,omitempty"`
}

// Wheel zooms around the pointer; negative DeltaY zooms in
type Wheel struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

// Pinch zooms around the gesture midpoint by an incremental factor
type Pinch struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// HoverEnter marks a node as hovered
type HoverEnter struct {
	NodeID string `json:"nodeId"`
}

// HoverLeave clears the hover on a node
type HoverLeave struct {
	NodeID string `json:"nodeId"`
}

// Resize reports a new viewport size
type Resize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (PointerDown) eventName() string   { return "pointerdown" }
func (PointerMove) eventName() string   { return "pointermove" }
func (PointerUp) eventName() string     { return "pointerup" }
func (PointerCancel) eventName() string { return "pointercancel" }
func (Wheel) eventName() string         { return "wheel" }
func (Pinch) eventName() string         { return "pinch" }
func (HoverEnter) eventName() string    { return "hoverenter" }
func (HoverLeave) eventName() string    { return "hoverleave" }
func (Resize) eventName() string        { return "resize" }

// Name returns the wire name of an event
func Name(ev Event) string {
	return ev.eventName()
}

// envelope is the wire form: {"type": "pointerdown", "x": 1, "y": 2, ...}
type envelope struct {
	Type string `json:"type"`
}

// DecodeEvent parses one wire event
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	var ev Event
	switch strings.ToLower(env.Type) {
	case "pointerdown":
		ev = &PointerDown{}
	case "pointermove":
		ev = &PointerMove{}
	case "pointerup":
		ev = &PointerUp{}
	case "pointercancel":
		ev = &PointerCancel{}
	case "wheel":
		ev = &Wheel{}
	case "pinch":
		ev = &Pinch{}
	case "hoverenter":
		ev = &HoverEnter{}
	case "hoverleave":
		ev = &HoverLeave{}
	case "resize":
		ev = &Resize{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", env.Type, err)
	}
	return deref(ev), nil
}

// DecodeEvents parses a JSON array of wire events
func DecodeEvents(data []byte) ([]Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode event batch: %w", err)
	}
	events := make([]Event, 0, len(raw))
	for i, r := range raw {
		ev, err := DecodeEvent(r)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// deref turns the decode targets back into value events
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *PointerDown:
		return *e
	case *PointerMove:
		return *e
	case *PointerUp:
		return *e
	case *PointerCancel:
		return *e
	case *Wheel:
		return *e
	case *Pinch:
		return *e
	case *HoverEnter:
		return *e
	case *HoverLeave:
		return *e
	case *Resize:
		return *e
	}
	return ev
}
