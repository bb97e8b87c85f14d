package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/ritzau/netview/pkg/force"
	"github.com/ritzau/netview/pkg/interact"
	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/view"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when --config is not given
const DefaultFile = "netview.toml"

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: NETVIEW_LAYOUT__DESKTOP__BASE_RADIUS=24.
const EnvPrefix = "NETVIEW_"

// Config holds all configuration for the application
type Config struct {
	ConfigFile    string        `koanf:"config"`
	Port          int           `koanf:"port"`
	Network       string        `koanf:"network"` // network JSON file to show
	Mode          string        `koanf:"mode"`    // global, focal, article; empty infers
	Watch         bool          `koanf:"watch"`
	Render        string        `koanf:"render"` // headless: write a settled SVG here and exit
	Inspect       bool          `koanf:"inspect"`
	ShowAll       bool          `koanf:"show_all"`
	Width         float64       `koanf:"width"`
	Height        float64       `koanf:"height"`
	FrameInterval time.Duration `koanf:"frame_interval"`
	SettleFrames  int           `koanf:"settle_frames"` // headless frame budget
	WatchQuiet    time.Duration `koanf:"watch_quiet"`
	WatchMaxWait  time.Duration `koanf:"watch_max_wait"`
	Verbosity     string        `koanf:"verbosity"`
	VerboseCnt    int           `koanf:"verbose"`
	JSONLogs      bool          `koanf:"json_logs"`

	Layout      layout.Policy    `koanf:"layout"`
	Sim         force.Params     `koanf:"sim"`
	Interaction interact.Options `koanf:"interaction"`
}

// flagKeys maps command-line flag names onto config keys where they differ
var flagKeys = map[string]string{
	"show-all":   "show_all",
	"top-n":      "layout.top_n",
	"breakpoint": "layout.breakpoint",
	"json-logs":  "json_logs",
}

// RegisterFlags defines the command-line flags Load understands
func RegisterFlags(f *pflag.FlagSet) {
	f.String("config", DefaultFile, "Path to a TOML config file")
	f.IntP("port", "p", 8080, "Port for the web server")
	f.StringP("network", "n", "", "Network JSON file to show")
	f.String("mode", "", "Network kind: global, focal or article (default: infer)")
	f.BoolP("watch", "w", false, "Reload the network file when it changes")
	f.StringP("render", "r", "", "Lay out the network and write an SVG to this path, then exit")
	f.BoolP("inspect", "i", false, "Print a report of the network and exit")
	f.Bool("show-all", false, "Show every entity instead of the top N")
	f.Int("top-n", 5, "Entities shown in focal mode")
	f.Float64("width", 1024, "Viewport width")
	f.Float64("height", 768, "Viewport height")
	f.Float64("breakpoint", 768, "Viewport widths below this use the mobile layout")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	f.Bool("json-logs", false, "Log as JSON")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional). A missing file is fine, a broken one is not.
	path, loaded := DefaultFile, ""
	if f != nil {
		if flag := f.Lookup("config"); flag != nil && flag.Changed {
			path = flag.Value.String()
		}
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else {
		loaded = path
	}

	// 3. Environment Variables
	// Prefix: NETVIEW_ (e.g., NETVIEW_PORT=9090, NETVIEW_SIM__MAX_TICKS=500)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = loaded
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key := f.Name
		if mapped, ok := flagKeys[key]; ok {
			key = mapped
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Validate rejects settings no view could run with
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("viewport must be positive, got %gx%g", c.Width, c.Height)
	case c.Layout.Desktop.MaxRadius < c.Layout.Desktop.BaseRadius:
		return fmt.Errorf("layout.desktop.max_radius must not be below base_radius")
	case c.Layout.Mobile.MaxRadius < c.Layout.Mobile.BaseRadius:
		return fmt.Errorf("layout.mobile.max_radius must not be below base_radius")
	case c.Watch && c.Network == "":
		return fmt.Errorf("--watch needs --network")
	case (c.Render != "" || c.Inspect) && c.Network == "":
		return fmt.Errorf("--render and --inspect need --network")
	}
	return nil
}

// View returns the settings every mounted view is built from
func (c *Config) View() view.Config {
	return view.Config{
		Policy:        c.Layout,
		Params:        c.Sim,
		Interaction:   c.Interaction,
		Width:         c.Width,
		Height:        c.Height,
		FrameInterval: c.FrameInterval,
	}
}

func defaults() map[string]interface{} {
	policy := layout.DefaultPolicy()
	params := force.DefaultParams()
	opts := interact.DefaultOptions()

	profile := func(p layout.Profile) map[string]interface{} {
		return map[string]interface{}{
			"base_radius":       p.BaseRadius,
			"max_radius":        p.MaxRadius,
			"link_distance":     p.LinkDistance,
			"charge_strength":   p.ChargeStrength,
			"collision_padding": p.CollisionPadding,
		}
	}

	return map[string]interface{}{
		"config":         "",
		"port":           8080,
		"network":        "",
		"mode":           "",
		"watch":          false,
		"render":         "",
		"inspect":        false,
		"show_all":       false,
		"width":          1024.0,
		"height":         768.0,
		"frame_interval": 16 * time.Millisecond,
		"settle_frames":  5000,
		"watch_quiet":    200 * time.Millisecond,
		"watch_max_wait": 2 * time.Second,
		"verbosity":      "",
		"verbose":        0,
		"json_logs":      false,
		"layout": map[string]interface{}{
			"breakpoint": policy.Breakpoint,
			"top_n":      policy.TopN,
			"desktop":    profile(policy.Desktop),
			"mobile":     profile(policy.Mobile),
		},
		"sim": map[string]interface{}{
			"alpha_min":        params.AlphaMin,
			"alpha_decay":      params.AlphaDecay,
			"velocity_decay":   params.VelocityDecay,
			"reheat_target":    params.ReheatTarget,
			"max_ticks":        params.MaxTicks,
			"link_strength":    params.LinkStrength,
			"center_strength":  params.CenterStrength,
			"collide_strength": params.CollideStrength,
			"distance_min":     params.DistanceMin,
			"initial_radius":   params.InitialRadius,
			"jitter":           params.Jitter,
		},
		"interaction": map[string]interface{}{
			"drag_threshold":     opts.DragThreshold,
			"click_max_duration": opts.ClickMaxDuration,
			"wheel_sensitivity":  opts.WheelSensitivity,
		},
	}
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
