package force

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/model"
	"gonum.org/v1/gonum/spatial/r2"
)

var center = r2.Vec{X: 400, Y: 300}

func fval(v float64) *float64 { return &v }

func newTestEngine(t *testing.T, snap *model.Snapshot) *Engine {
	t.Helper()
	return New(snap, layout.DefaultPolicy().Desktop, center, DefaultParams(), WithRand(rand.New(rand.NewSource(1))))
}

func pairSnapshot() *model.Snapshot {
	return model.NewSnapshot(
		[]model.RawNode{
			{ID: "a", Label: "Alice", Type: "PERSON", Weight: fval(10)},
			{ID: "b", Label: "Acme", Type: "ORG", Weight: fval(1)},
		},
		[]model.RawConnection{{Source: "a", Target: "b", Label: "works at"}},
	)
}

func ringSnapshot(n int) *model.Snapshot {
	var nodes []model.RawNode
	var conns []model.RawConnection
	for i := 0; i < n; i++ {
		nodes = append(nodes, model.RawNode{ID: fmt.Sprintf("n%d", i), Weight: fval(float64(i + 1))})
		conns = append(conns, model.RawConnection{Source: fmt.Sprintf("n%d", i), Target: fmt.Sprintf("n%d", (i+1)%n)})
	}
	return model.NewSnapshot(nodes, conns)
}

func runUntilSettled(e *Engine, limit int) int {
	for i := 0; i < limit; i++ {
		if !e.Tick() {
			return i
		}
	}
	return limit
}

func TestEngineSettles(t *testing.T) {
	e := newTestEngine(t, ringSnapshot(8))

	if e.State() != Seeding {
		t.Fatalf("Expected Seeding before first tick, got %s", e.State())
	}

	e.Tick()
	if e.State() != Running {
		t.Fatalf("Expected Running after first tick, got %s", e.State())
	}

	prev := e.Alpha()
	for e.State() == Running {
		e.Tick()
		if e.Alpha() >= prev {
			t.Fatalf("Alpha did not decrease: %v -> %v", prev, e.Alpha())
		}
		prev = e.Alpha()
		if e.Ticks() > 400 {
			t.Fatalf("Engine did not settle within 400 ticks (alpha=%v)", e.Alpha())
		}
	}

	if e.State() != Settled {
		t.Fatalf("Expected Settled, got %s", e.State())
	}
	if e.Alpha() >= DefaultParams().AlphaMin {
		t.Errorf("Settled with alpha %v above threshold", e.Alpha())
	}
	if e.Tick() {
		t.Error("Tick on a settled engine should be a no-op")
	}
}

func TestEngineEnergyDecays(t *testing.T) {
	e := newTestEngine(t, ringSnapshot(6))

	for i := 0; i < 30; i++ {
		e.Tick()
	}
	early := e.KineticEnergy()

	runUntilSettled(e, 1000)
	late := e.KineticEnergy()

	if late >= early {
		t.Errorf("Expected kinetic energy to drop after the transient: early=%v late=%v", early, late)
	}
}

func TestEngineNoOverlapAfterSettling(t *testing.T) {
	e := newTestEngine(t, ringSnapshot(6))
	runUntilSettled(e, 1000)

	bodies := e.Bodies()
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			d := r2.Norm(r2.Sub(bodies[i].Pos, bodies[j].Pos))
			// visual circles must not intersect; collision radius adds padding on top
			if d < bodies[i].Radius+bodies[j].Radius {
				t.Errorf("Bodies %s and %s overlap: distance %v", bodies[i].ID, bodies[j].ID, d)
			}
		}
	}
}

func TestEngineRadiusFollowsWeight(t *testing.T) {
	e := newTestEngine(t, pairSnapshot())

	a, _ := e.Body("a")
	b, _ := e.Body("b")
	if a.Radius <= b.Radius {
		t.Errorf("Expected radius(a) > radius(b), got %v <= %v", a.Radius, b.Radius)
	}
	if a.CollisionRadius != a.Radius+layout.DefaultPolicy().Desktop.CollisionPadding {
		t.Errorf("Unexpected collision radius %v", a.CollisionRadius)
	}
}

func TestPinHoldsPosition(t *testing.T) {
	e := newTestEngine(t, ringSnapshot(5))
	pin := r2.Vec{X: 123.5, Y: 456.25}

	e.Reheat()
	e.Pin("n2", pin)
	for i := 0; i < 50; i++ {
		e.Tick()
		b, _ := e.Body("n2")
		if b.Pos != pin {
			t.Fatalf("Tick %d: pinned body moved to %v", i, b.Pos)
		}
		if !b.Pinned {
			t.Fatal("Body lost its pin")
		}
	}

	e.Unpin("n2")
	e.Cool()
	e.Tick()
	b, _ := e.Body("n2")
	if b.Pos == pin {
		t.Error("Expected unpinned body to move under the forces")
	}
}

func TestReheatAfterSettled(t *testing.T) {
	e := newTestEngine(t, pairSnapshot())
	runUntilSettled(e, 1000)

	e.Reheat()
	if e.State() != Reheated {
		t.Fatalf("Expected Reheated, got %s", e.State())
	}
	if !e.Tick() {
		t.Fatal("Reheated engine should tick")
	}
	if e.State() != Running {
		t.Errorf("Expected Running after reheated tick, got %s", e.State())
	}

	e.Cool()
	n := runUntilSettled(e, 2000)
	if e.State() != Settled {
		t.Errorf("Expected Settled after cooling, still %s after %d ticks", e.State(), n)
	}
}

func TestRestartAppliesProfile(t *testing.T) {
	policy := layout.DefaultPolicy()
	e := newTestEngine(t, pairSnapshot())
	runUntilSettled(e, 1000)

	newCenter := r2.Vec{X: 180, Y: 300}
	e.Restart(policy.Mobile, newCenter)

	if e.State() != Running || e.Alpha() != 1 {
		t.Fatalf("Expected a fresh Running engine, got %s alpha=%v", e.State(), e.Alpha())
	}
	if e.Profile().LinkDistance != policy.Mobile.LinkDistance {
		t.Errorf("Expected mobile link distance, got %v", e.Profile().LinkDistance)
	}
	b, _ := e.Body("b")
	if b.Radius != policy.Mobile.BaseRadius {
		t.Errorf("Expected mobile base radius %v, got %v", policy.Mobile.BaseRadius, b.Radius)
	}

	runUntilSettled(e, 1000)
	var sum r2.Vec
	for _, body := range e.Bodies() {
		sum = r2.Add(sum, body.Pos)
	}
	centroid := r2.Scale(0.5, sum)
	if r2.Norm(r2.Sub(centroid, newCenter)) > 1 {
		t.Errorf("Expected layout centered on %v, centroid at %v", newCenter, centroid)
	}
}

func TestLinkDistance(t *testing.T) {
	e := newTestEngine(t, pairSnapshot())
	runUntilSettled(e, 1000)

	a, _ := e.Body("a")
	b, _ := e.Body("b")
	d := r2.Norm(r2.Sub(a.Pos, b.Pos))
	want := layout.DefaultPolicy().Desktop.LinkDistance
	// repulsion stretches the link a little past its rest length
	if d < want*0.8 || d > want*2 {
		t.Errorf("Expected distance near %v, got %v", want, d)
	}
}

func TestEmptyAndStopped(t *testing.T) {
	empty := newTestEngine(t, model.NewSnapshot(nil, nil))
	if empty.Tick() {
		t.Error("Empty engine should not tick")
	}
	if empty.State() != Settled {
		t.Errorf("Empty engine should be Settled, got %s", empty.State())
	}
	empty.Reheat()
	if empty.State() != Settled {
		t.Error("Reheating an empty engine should do nothing")
	}

	e := newTestEngine(t, pairSnapshot())
	e.Stop()
	if e.Tick() {
		t.Error("Stopped engine should not tick")
	}
	if !e.Stopped() {
		t.Error("Expected Stopped() after Stop")
	}
}

func TestSingleNode(t *testing.T) {
	snap := model.NewSnapshot([]model.RawNode{{ID: "solo"}}, nil)
	e := newTestEngine(t, snap)
	runUntilSettled(e, 1000)

	b, _ := e.Body("solo")
	if math.IsNaN(b.Pos.X) || math.IsNaN(b.Pos.Y) {
		t.Fatalf("Single node ended at NaN position")
	}
	if r2.Norm(r2.Sub(b.Pos, center)) > 1e-6 {
		t.Errorf("Expected single node at center, got %v", b.Pos)
	}
}

func TestMaxTicksSafetyValve(t *testing.T) {
	params := DefaultParams()
	params.AlphaDecay = 1e-6
	params.MaxTicks = 25
	e := New(ringSnapshot(4), layout.DefaultPolicy().Desktop, center, params, WithRand(rand.New(rand.NewSource(2))))

	n := runUntilSettled(e, 1000)
	if e.State() != Settled || n > 25 {
		t.Errorf("Expected the tick cap to settle the engine, state=%s after %d ticks", e.State(), n)
	}
}

func TestBodyAt(t *testing.T) {
	e := newTestEngine(t, pairSnapshot())
	e.Pin("a", r2.Vec{X: 10, Y: 10})

	if id, ok := e.BodyAt(r2.Vec{X: 12, Y: 9}); !ok || id != "a" {
		t.Errorf("Expected hit on a, got %q %v", id, ok)
	}
	if _, ok := e.BodyAt(r2.Vec{X: -500, Y: -500}); ok {
		t.Error("Expected miss far away from every body")
	}
}
