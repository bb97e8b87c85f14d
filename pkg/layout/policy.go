package layout

// Class tags which viewport family a profile belongs to
type Class string

const (
	ClassDesktop Class = "desktop"
	ClassMobile  Class = "mobile"
)

// Profile holds the radius and force parameters for one viewport class.
// The numbers are tuning knobs; only their relative ordering between
// classes matters (bigger tap targets, tighter links on mobile).
type Profile struct {
	Class            Class   `koanf:"-" json:"class"`
	BaseRadius       float64 `koanf:"base_radius" json:"baseRadius"`
	MaxRadius        float64 `koanf:"max_radius" json:"maxRadius"`
	LinkDistance     float64 `koanf:"link_distance" json:"linkDistance"`
	ChargeStrength   float64 `koanf:"charge_strength" json:"chargeStrength"` // negative repels
	CollisionPadding float64 `koanf:"collision_padding" json:"collisionPadding"`
}

// Radius maps a normalized weight in [0,1] to a visual radius
func (p Profile) Radius(normalizedWeight float64) float64 {
	w := clamp01(normalizedWeight)
	return p.BaseRadius + w*(p.MaxRadius-p.BaseRadius)
}

// CollisionRadius is the radius the physics engine keeps clear around a node
func (p Profile) CollisionRadius(normalizedWeight float64) float64 {
	return p.Radius(normalizedWeight) + p.CollisionPadding
}

// Policy decides radii, force parameters and node visibility for a view
type Policy struct {
	Breakpoint float64 `koanf:"breakpoint"` // widths below this use the mobile profile
	TopN       int     `koanf:"top_n"`
	Desktop    Profile `koanf:"desktop"`
	Mobile     Profile `koanf:"mobile"`
}

// DefaultPolicy returns the stock desktop/mobile parameters
func DefaultPolicy() Policy {
	return Policy{
		Breakpoint: 768,
		TopN:       5,
		Desktop: Profile{
			Class:            ClassDesktop,
			BaseRadius:       20,
			MaxRadius:        40,
			LinkDistance:     150,
			ChargeStrength:   -400,
			CollisionPadding: 10,
		},
		Mobile: Profile{
			Class:            ClassMobile,
			BaseRadius:       28,
			MaxRadius:        48,
			LinkDistance:     100,
			ChargeStrength:   -250,
			CollisionPadding: 10,
		},
	}
}

// ClassFor returns the viewport class for a width
func (p Policy) ClassFor(width float64) Class {
	if width < p.Breakpoint {
		return ClassMobile
	}
	return ClassDesktop
}

// ProfileFor returns the profile matching a viewport width
func (p Policy) ProfileFor(width float64) Profile {
	if p.ClassFor(width) == ClassMobile {
		prof := p.Mobile
		prof.Class = ClassMobile
		return prof
	}
	prof := p.Desktop
	prof.Class = ClassDesktop
	return prof
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}
