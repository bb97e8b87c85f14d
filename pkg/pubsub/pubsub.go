package pubsub

import (
	"context"
	"encoding/json"
)

// Topic kinds published for every mounted view
const (
	KindScene      = "scene"       // one event per rendered frame
	KindNavigation = "navigation"  // a node was clicked
	KindViewStatus = "view_status" // snapshot loaded, settled, unmounted
)

// Topic scopes a topic kind to one view
func Topic(viewID, kind string) string {
	return kind + "/" + viewID
}

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // e.g. "scene/<view id>"
	Type    string          `json:"type"`    // e.g. "frame", "navigate", "loaded"
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// ViewStatus describes the lifecycle of a mounted view
type ViewStatus struct {
	State    string `json:"state"`   // loaded, settled, reheated, unmounted
	Message  string `json:"message"` // Human-readable status message
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Hidden   int    `json:"hidden"`
	Dropped  int    `json:"dropped"`
	ShowAll  bool   `json:"show_all"`
	Focal    string `json:"focal_entity,omitempty"`
	Mentions int    `json:"mention_count,omitempty"`
}

// NavigationData is the payload of a navigation event
type NavigationData struct {
	EntityID string `json:"entity_id"`
}
