package view

import (
	"github.com/ritzau/netview/pkg/interact"
	"github.com/ritzau/netview/pkg/logging"
	"github.com/ritzau/netview/pkg/pubsub"
	"github.com/ritzau/netview/pkg/render"
)

// PublisherSink forwards view output to per-view pub/sub topics
type PublisherSink struct {
	pub pubsub.Publisher
}

// NewPublisherSink creates a sink publishing on pub
func NewPublisherSink(pub pubsub.Publisher) *PublisherSink {
	return &PublisherSink{pub: pub}
}

func (s *PublisherSink) Frame(viewID string, scene render.Scene) {
	if err := s.pub.Publish(pubsub.Topic(viewID, pubsub.KindScene), "frame", scene); err != nil {
		logging.Trace("scene frame not published", "view", viewID, "error", err)
	}
}

func (s *PublisherSink) Navigate(viewID string, nav interact.Navigation) {
	data := pubsub.NavigationData{EntityID: nav.EntityID}
	if err := s.pub.Publish(pubsub.Topic(viewID, pubsub.KindNavigation), "navigate", data); err != nil {
		logging.Warn("navigation not published", "view", viewID, "entity", nav.EntityID, "error", err)
	}
}

func (s *PublisherSink) Status(viewID string, status pubsub.ViewStatus) {
	if err := s.pub.Publish(pubsub.Topic(viewID, pubsub.KindViewStatus), status.State, status); err != nil {
		logging.Debug("view status not published", "view", viewID, "state", status.State, "error", err)
	}
}
