package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ritzau/netview/pkg/force"
	"github.com/ritzau/netview/pkg/interact"
	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/model"
	"github.com/ritzau/netview/pkg/pubsub"
	"github.com/ritzau/netview/pkg/render"
	"gonum.org/v1/gonum/spatial/r2"
)

type recordingSink struct {
	mu       sync.Mutex
	scenes   chan render.Scene
	navs     []interact.Navigation
	statuses []pubsub.ViewStatus
}

func newRecordingSink() *recordingSink {
	return &recordingSink{scenes: make(chan render.Scene, 16)}
}

func (s *recordingSink) Frame(_ string, scene render.Scene) {
	select {
	case s.scenes <- scene:
	default:
	}
}

func (s *recordingSink) Navigate(_ string, nav interact.Navigation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navs = append(s.navs, nav)
}

func (s *recordingSink) Status(_ string, status pubsub.ViewStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *recordingSink) states() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, st := range s.statuses {
		out = append(out, st.State)
	}
	return out
}

func (s *recordingSink) drain() {
	for {
		select {
		case <-s.scenes:
		default:
			return
		}
	}
}

func (s *recordingSink) next(t *testing.T) render.Scene {
	t.Helper()
	select {
	case scene := <-s.scenes:
		return scene
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for a frame")
	}
	return render.Scene{}
}

func weight(v float64) *float64 { return &v }

// network builds n nodes n0..n(n-1) with descending weights and a chain of edges
func network(prefix string, n int) *model.NetworkResponse {
	resp := &model.NetworkResponse{TotalEntities: n}
	for i := 0; i < n; i++ {
		resp.Nodes = append(resp.Nodes, model.RawNode{
			ID:     fmt.Sprintf("%s%d", prefix, i),
			Label:  fmt.Sprintf("Entity %d", i),
			Type:   "PERSON",
			Weight: weight(float64(n - i)),
		})
		if i > 0 {
			resp.Connections = append(resp.Connections, model.RawConnection{
				Source: fmt.Sprintf("%s%d", prefix, i-1),
				Target: fmt.Sprintf("%s%d", prefix, i),
			})
		}
	}
	resp.TotalRelationships = len(resp.Connections)
	return resp
}

func newManualView(t *testing.T, sink Sink) *View {
	t.Helper()
	v := New("test", DefaultConfig(), sink, Manual(), WithSeed(1))
	t.Cleanup(func() { v.Close() })
	return v
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestLoadAndSettle(t *testing.T) {
	sink := newRecordingSink()
	v := newManualView(t, sink)

	if err := v.Load(network("n", 4), ModeGlobal); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	frames := v.Settle(5000)
	if v.State() != force.Settled {
		t.Fatalf("Expected settled after %d frames, got %s", frames, v.State())
	}
	if frames >= 5000 {
		t.Errorf("Settle used the whole budget")
	}
	if states := sink.states(); len(states) < 2 || states[0] != "loaded" || !contains(states, "settled") {
		t.Errorf("Unexpected status sequence %v", states)
	}

	scene, err := v.Scene()
	if err != nil {
		t.Fatalf("Scene failed: %v", err)
	}
	if scene.Stats.Nodes != 4 || scene.Stats.Edges != 3 {
		t.Errorf("Unexpected scene stats %+v", scene.Stats)
	}

	// settled views publish nothing until something changes
	before := v.Frames()
	if v.Step() || v.Frames() != before {
		t.Error("Expected no frame from a settled, idle view")
	}
}

func TestFocalTopN(t *testing.T) {
	v := newManualView(t, nil)

	resp := network("n", 12)
	resp.FocalEntity = "n0"
	resp.MentionCount = 42
	mode, err := ParseMode("", resp)
	if err != nil || mode != ModeFocal {
		t.Fatalf("Expected focal mode, got %v (%v)", mode, err)
	}
	if err := v.Load(resp, mode); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	status := v.Status()
	if status.Nodes != 5 || status.Hidden != 7 || status.ShowAll {
		t.Fatalf("Expected top 5 of 12, got %+v", status)
	}
	if status.Edges != 4 {
		t.Errorf("Expected the 4 chain edges among n0..n4, got %d", status.Edges)
	}
	if status.Focal != "n0" || status.Mentions != 42 {
		t.Errorf("Expected focal fields carried, got %+v", status)
	}
	if _, ok := v.Body("n7"); ok {
		t.Error("Hidden node must not be simulated")
	}

	if err := v.SetShowAll(true); err != nil {
		t.Fatalf("SetShowAll failed: %v", err)
	}
	status = v.Status()
	if status.Nodes != 12 || status.Edges != 11 || status.Hidden != 0 {
		t.Errorf("Expected everything after show all, got %+v", status)
	}
}

func TestArticleDefaultShowAll(t *testing.T) {
	tests := []struct {
		total int
		want  bool
	}{
		{3, true},
		{5, true},
		{12, false},
	}
	for _, tt := range tests {
		v := newManualView(t, nil)
		if err := v.Load(network("n", tt.total), ModeArticle); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got := v.ShowAll(); got != tt.want {
			t.Errorf("total=%d: ShowAll = %v, want %v", tt.total, got, tt.want)
		}
	}
}

func TestDragAppliedBeforeTick(t *testing.T) {
	sink := newRecordingSink()
	v := newManualView(t, sink)
	if err := v.Load(network("n", 3), ModeGlobal); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	v.Settle(5000)

	start, _ := v.Body("n1")
	target := r2.Add(start.Pos, r2.Vec{X: 60, Y: -25})
	err := v.Dispatch(
		interact.PointerDown{X: start.Pos.X, Y: start.Pos.Y, NodeID: "n1"},
		interact.PointerMove{X: target.X, Y: target.Y},
	)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !v.Step() {
		t.Fatal("Expected a frame after a drag")
	}

	b, _ := v.Body("n1")
	if !b.Pinned || b.Pos != target {
		t.Errorf("Expected n1 pinned at %v in the next frame, got %v (pinned=%v)", target, b.Pos, b.Pinned)
	}
	if v.State() != force.Running {
		t.Errorf("Expected the drag to reheat into running, got %s", v.State())
	}
	if !contains(sink.states(), "reheated") {
		t.Errorf("Expected reheated status, got %v", sink.states())
	}

	v.Dispatch(interact.PointerUp{X: target.X, Y: target.Y})
	v.Step()
	if b, _ := v.Body("n1"); b.Pinned {
		t.Error("Expected n1 released on pointer up")
	}
	v.Settle(5000)
	if v.State() != force.Settled {
		t.Errorf("Expected settled after release, got %s", v.State())
	}
}

func TestLostPointerUpStillSettles(t *testing.T) {
	tests := []struct {
		name    string
		release []interact.Event
	}{
		{"new press on empty canvas", []interact.Event{
			interact.PointerDown{X: -5000, Y: -5000},
			interact.PointerUp{X: -5000, Y: -5000},
		}},
		{"pointer cancel", []interact.Event{
			interact.PointerCancel{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newManualView(t, nil)
			if err := v.Load(network("n", 3), ModeGlobal); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			v.Settle(5000)

			start, _ := v.Body("n1")
			v.Dispatch(
				interact.PointerDown{X: start.Pos.X, Y: start.Pos.Y, NodeID: "n1"},
				interact.PointerMove{X: start.Pos.X + 80, Y: start.Pos.Y},
			)
			v.Step()
			if b, _ := v.Body("n1"); !b.Pinned {
				t.Fatal("Expected n1 pinned while dragged")
			}

			v.Dispatch(tt.release...)
			frames := v.Settle(20000)

			if v.State() != force.Settled {
				t.Errorf("Expected settled, got %s after %d frames", v.State(), frames)
			}
			if b, _ := v.Body("n1"); b.Pinned {
				t.Error("Expected n1 released")
			}
		})
	}
}

func TestClickNavigatesWithoutReheat(t *testing.T) {
	sink := newRecordingSink()
	v := newManualView(t, sink)
	v.Load(network("n", 3), ModeGlobal)
	v.Settle(5000)

	b, _ := v.Body("n2")
	v.Dispatch(
		interact.PointerDown{X: b.Pos.X, Y: b.Pos.Y},
		interact.PointerUp{X: b.Pos.X + 1, Y: b.Pos.Y},
	)
	v.Step()

	sink.mu.Lock()
	navs := append([]interact.Navigation(nil), sink.navs...)
	sink.mu.Unlock()
	if len(navs) != 1 || navs[0].EntityID != "n2" {
		t.Fatalf("Expected navigation to n2, got %+v", navs)
	}
	if v.State() != force.Settled {
		t.Errorf("A click must leave the simulation settled, got %s", v.State())
	}
}

func TestResizeAcrossBreakpoint(t *testing.T) {
	v := newManualView(t, nil)
	v.Load(network("n", 3), ModeGlobal)
	v.Settle(5000)

	v.Dispatch(interact.Resize{Width: 375, Height: 667})
	v.Step()

	if c := v.Center(); c != (r2.Vec{X: 187.5, Y: 333.5}) {
		t.Errorf("Expected center of the new viewport, got %v", c)
	}
	heaviest, _ := v.Body("n0")
	if want := DefaultConfig().Policy.Mobile.MaxRadius; heaviest.Radius != want {
		t.Errorf("Expected mobile radius %v, got %v", want, heaviest.Radius)
	}
	if v.State() != force.Running {
		t.Errorf("Expected restart into running, got %s", v.State())
	}
}

func TestResizeWhileRunningRestarts(t *testing.T) {
	v := newManualView(t, nil)
	if err := v.Load(network("n", 3), ModeGlobal); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		v.Step()
	}
	if v.State() != force.Running {
		t.Fatalf("Expected running after a few frames, got %s", v.State())
	}
	cooled := v.Alpha()
	if cooled >= 0.9 {
		t.Fatalf("Expected alpha to have decayed, got %v", cooled)
	}

	v.Dispatch(interact.Resize{Width: 375, Height: 667})
	v.Step()

	// restart puts alpha back to 1; the frame then ticks once
	params := force.DefaultParams()
	if want := 1 + (0-1)*params.AlphaDecay; v.Alpha() != want {
		t.Errorf("Expected alpha %v one tick after restart, got %v", want, v.Alpha())
	}
	mobile := DefaultConfig().Policy.Mobile
	profile := v.Profile()
	if profile.Class != layout.ClassMobile || profile.LinkDistance != mobile.LinkDistance {
		t.Errorf("Expected the mobile profile, got %+v", profile)
	}
	if heaviest, _ := v.Body("n0"); heaviest.Radius != mobile.MaxRadius {
		t.Errorf("Expected mobile radius %v, got %v", mobile.MaxRadius, heaviest.Radius)
	}
	if lightest, _ := v.Body("n2"); lightest.Radius != mobile.BaseRadius {
		t.Errorf("Expected mobile base radius %v, got %v", mobile.BaseRadius, lightest.Radius)
	}
	if v.State() != force.Running {
		t.Errorf("Expected running, got %s", v.State())
	}
}

func TestEmptyNetwork(t *testing.T) {
	v := newManualView(t, nil)
	if err := v.Load(&model.NetworkResponse{}, ModeGlobal); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n := v.Settle(100); n != 1 {
		t.Errorf("Expected one frame for an empty network, got %d", n)
	}
	scene, _ := v.Scene()
	if len(scene.Nodes) != 0 || len(scene.Edges) != 0 {
		t.Errorf("Expected empty scene, got %+v", scene)
	}
}

func TestLoadReplacesRunningLoop(t *testing.T) {
	sink := newRecordingSink()
	frames := make(chan time.Time)
	v := New("loop", DefaultConfig(), sink, WithFrames(frames), WithSeed(1))

	if err := v.Load(network("a", 3), ModeGlobal); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	frames <- time.Now()
	if scene := sink.next(t); scene.Nodes[0].ID[0] != 'a' {
		t.Errorf("Expected a frame of the first network, got %s", scene.Nodes[0].ID)
	}

	if err := v.Load(network("b", 2), ModeGlobal); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sink.drain()
	frames <- time.Now()
	scene := sink.next(t)
	if len(scene.Nodes) != 2 || scene.Nodes[0].ID[0] != 'b' {
		t.Errorf("Expected a frame of the second network, got %+v", scene.Nodes)
	}
	if !v.Running() {
		t.Error("Expected the loop running after replacement")
	}

	if err := v.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if v.Running() {
		t.Error("Expected no loop after Close")
	}
	select {
	case frames <- time.Now():
		t.Error("Frame loop still consuming frames after Close")
	case <-time.After(50 * time.Millisecond):
	}

	if err := v.Dispatch(interact.HoverEnter{NodeID: "b0"}); !errors.Is(err, ErrUnmounted) {
		t.Errorf("Expected ErrUnmounted from Dispatch, got %v", err)
	}
	if err := v.Load(network("c", 1), ModeGlobal); !errors.Is(err, ErrUnmounted) {
		t.Errorf("Expected ErrUnmounted from Load, got %v", err)
	}
	if _, err := v.Scene(); !errors.Is(err, ErrUnmounted) {
		t.Errorf("Expected ErrUnmounted from Scene, got %v", err)
	}
	if err := v.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if states := sink.states(); states[len(states)-1] != "unmounted" {
		t.Errorf("Expected unmounted status last, got %v", states)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		resp    *model.NetworkResponse
		want    Mode
		wantErr bool
	}{
		{"", &model.NetworkResponse{}, ModeGlobal, false},
		{"", &model.NetworkResponse{FocalEntity: "x"}, ModeFocal, false},
		{"Article", nil, ModeArticle, false},
		{"global", &model.NetworkResponse{FocalEntity: "x"}, ModeGlobal, false},
		{"sideways", nil, ModeGlobal, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.name, tt.resp)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestPublisherSinkNavigation(t *testing.T) {
	pub := pubsub.NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := pub.Subscribe(ctx, pubsub.Topic("test", pubsub.KindNavigation))
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	v := newManualView(t, NewPublisherSink(pub))
	v.Load(network("n", 2), ModeGlobal)
	v.Settle(5000)
	v.Dispatch(interact.PointerDown{NodeID: "n1"}, interact.PointerUp{})
	v.Step()

	select {
	case event := <-sub.Events():
		var nav pubsub.NavigationData
		if err := json.Unmarshal(event.Data, &nav); err != nil {
			t.Fatalf("Failed to decode navigation: %v", err)
		}
		if event.Type != "navigate" || nav.EntityID != "n1" {
			t.Errorf("Unexpected navigation event %s %+v", event.Type, nav)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for navigation event")
	}
}
