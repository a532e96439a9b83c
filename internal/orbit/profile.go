package orbit

// Mode is the viewing mode that selects which distance profile applies.
type Mode int

const (
	ModeNormal Mode = iota
	ModeDetail      // focused on a point of interest
)

func (m Mode) String() string {
	if m == ModeDetail {
		return "detail"
	}
	return "normal"
}

// Profile is a camera distance with the bounds it may be zoomed within.
type Profile struct {
	Distance    float64 `mapstructure:"distance"`
	MinDistance float64 `mapstructure:"min_distance"`
	MaxDistance float64 `mapstructure:"max_distance"`
}

// Profiles is the orientation × mode table.
type Profiles struct {
	Portrait        Profile `mapstructure:"portrait"`
	Landscape       Profile `mapstructure:"landscape"`
	DetailPortrait  Profile `mapstructure:"detail_portrait"`
	DetailLandscape Profile `mapstructure:"detail_landscape"`
}

// DefaultProfiles matches the stock viewer layout.
func DefaultProfiles() Profiles {
	return Profiles{
		Portrait:        Profile{Distance: 24, MinDistance: 12, MaxDistance: 30},
		Landscape:       Profile{Distance: 18, MinDistance: 12, MaxDistance: 24},
		DetailPortrait:  Profile{Distance: 7, MinDistance: 5, MaxDistance: 14},
		DetailLandscape: Profile{Distance: 7, MinDistance: 5, MaxDistance: 9},
	}
}

// Select returns the profile for an orientation and mode.
func (p Profiles) Select(portrait bool, mode Mode) Profile {
	switch {
	case mode == ModeDetail && portrait:
		return p.DetailPortrait
	case mode == ModeDetail:
		return p.DetailLandscape
	case portrait:
		return p.Portrait
	default:
		return p.Landscape
	}
}

// IsPortrait reports whether a viewport is taller than it is wide.
func IsPortrait(width, height int) bool {
	return height > width
}
