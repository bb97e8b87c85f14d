package force

import "math"

// Params are the integrator and force tuning knobs. Distances and charge come
// from the layout profile; everything here is profile independent.
type Params struct {
	AlphaMin        float64 `koanf:"alpha_min"`
	AlphaDecay      float64 `koanf:"alpha_decay"`
	VelocityDecay   float64 `koanf:"velocity_decay"` // fraction of velocity lost per tick
	ReheatTarget    float64 `koanf:"reheat_target"`  // alpha target while a drag is active
	MaxTicks        int     `koanf:"max_ticks"`      // safety valve after each (re)start
	LinkStrength    float64 `koanf:"link_strength"`  // 0 derives strength from node degree
	CenterStrength  float64 `koanf:"center_strength"`
	CollideStrength float64 `koanf:"collide_strength"`
	DistanceMin     float64 `koanf:"distance_min"` // charge is capped below this distance
	InitialRadius   float64 `koanf:"initial_radius"`
	Jitter          float64 `koanf:"jitter"` // random offset added to seed positions
}

// DefaultParams settles in roughly 300 ticks from a cold start
func DefaultParams() Params {
	const alphaMin = 0.001
	return Params{
		AlphaMin:        alphaMin,
		AlphaDecay:      1 - math.Pow(alphaMin, 1.0/300),
		VelocityDecay:   0.4,
		ReheatTarget:    0.3,
		MaxTicks:        1000,
		LinkStrength:    0,
		CenterStrength:  1,
		CollideStrength: 1,
		DistanceMin:     1,
		InitialRadius:   10,
		Jitter:          5,
	}
}

// withDefaults fills zero fields so a partially configured Params still
// yields a converging simulation
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.AlphaMin <= 0 {
		p.AlphaMin = d.AlphaMin
	}
	if p.AlphaDecay <= 0 || p.AlphaDecay >= 1 {
		p.AlphaDecay = 1 - math.Pow(p.AlphaMin, 1.0/300)
	}
	if p.VelocityDecay <= 0 || p.VelocityDecay > 1 {
		p.VelocityDecay = d.VelocityDecay
	}
	if p.ReheatTarget <= 0 {
		p.ReheatTarget = d.ReheatTarget
	}
	if p.MaxTicks <= 0 {
		p.MaxTicks = d.MaxTicks
	}
	if p.CenterStrength < 0 {
		p.CenterStrength = d.CenterStrength
	}
	if p.CollideStrength <= 0 {
		p.CollideStrength = d.CollideStrength
	}
	if p.DistanceMin <= 0 {
		p.DistanceMin = d.DistanceMin
	}
	if p.InitialRadius <= 0 {
		p.InitialRadius = d.InitialRadius
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}
