package force

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// jiggle returns a tiny random offset used to separate coincident bodies
func (e *Engine) jiggle() float64 {
	return (e.rng.Float64() - 0.5) * 1e-6
}

func (e *Engine) nonZero(d r2.Vec) r2.Vec {
	if d.X == 0 {
		d.X = e.jiggle()
	}
	if d.Y == 0 {
		d.Y = e.jiggle()
	}
	return d
}

// applyLinks pulls linked bodies toward the profile's link distance. The
// correction is split by degree so hubs move less than leaves.
func (e *Engine) applyLinks() {
	distance := e.profile.LinkDistance
	for _, l := range e.links {
		s, t := &e.bodies[l.source], &e.bodies[l.target]

		d := e.nonZero(r2.Sub(r2.Add(t.Pos, t.Vel), r2.Add(s.Pos, s.Vel)))
		length := r2.Norm(d)
		k := (length - distance) / length * e.alpha * l.strength
		d = r2.Scale(k, d)

		t.Vel = r2.Sub(t.Vel, r2.Scale(l.bias, d))
		s.Vel = r2.Add(s.Vel, r2.Scale(1-l.bias, d))
	}
}

// applyCharge makes every pair of bodies repel (negative strength) with a
// magnitude that falls off with distance. Brute force; networks here are small.
func (e *Engine) applyCharge() {
	w := e.profile.ChargeStrength * e.alpha
	if w == 0 {
		return
	}
	min2 := e.params.DistanceMin * e.params.DistanceMin

	for i := range e.bodies {
		bi := &e.bodies[i]
		for j := range e.bodies {
			if i == j {
				continue
			}
			d := e.nonZero(r2.Sub(e.bodies[j].Pos, bi.Pos))
			l2 := r2.Norm2(d)
			if l2 < min2 {
				l2 = math.Sqrt(min2 * l2)
			}
			bi.Vel = r2.Add(bi.Vel, r2.Scale(w/l2, d))
		}
	}
}

// applyCollide pushes apart any two bodies whose collision circles overlap,
// splitting the correction by relative area
func (e *Engine) applyCollide() {
	strength := e.params.CollideStrength
	for i := range e.bodies {
		bi := &e.bodies[i]
		ri := bi.CollisionRadius
		for j := i + 1; j < len(e.bodies); j++ {
			bj := &e.bodies[j]
			rj := bj.CollisionRadius
			r := ri + rj

			d := r2.Sub(r2.Add(bi.Pos, bi.Vel), r2.Add(bj.Pos, bj.Vel))
			l2 := r2.Norm2(d)
			if l2 >= r*r {
				continue
			}
			d = e.nonZero(d)
			l := math.Sqrt(r2.Norm2(d))
			k := (r - l) / l * strength
			d = r2.Scale(k, d)

			share := (rj * rj) / (ri*ri + rj*rj)
			bi.Vel = r2.Add(bi.Vel, r2.Scale(share, d))
			bj.Vel = r2.Sub(bj.Vel, r2.Scale(1-share, d))
		}
	}
}

// applyCenter translates the whole layout so its centroid moves toward the
// center. Relative positions are unaffected.
func (e *Engine) applyCenter() {
	if e.params.CenterStrength == 0 || len(e.bodies) == 0 {
		return
	}
	var sum r2.Vec
	for _, b := range e.bodies {
		sum = r2.Add(sum, b.Pos)
	}
	centroid := r2.Scale(1/float64(len(e.bodies)), sum)
	shift := r2.Scale(e.params.CenterStrength, r2.Sub(centroid, e.center))
	for i := range e.bodies {
		e.bodies[i].Pos = r2.Sub(e.bodies[i].Pos, shift)
	}
}
