// Package config loads and validates the JSON5 run configuration used by
// the iris CLI.
package config

import (
	"image"
	"os"
	"time"

	"github.com/flynn/json5"
	"github.com/pkg/errors"

	"github.com/frankbria/iris/go/capture"
	"github.com/frankbria/iris/go/diff"
	"github.com/frankbria/iris/go/severity"
	"github.com/frankbria/iris/go/types"
)

// Duration unmarshals from a Go duration string ("30s", "1m30s").
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json5.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Capture configures the browser session.
type Capture struct {
	Headless          *bool  `json:"headless"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	SettleDelayMillis int    `json:"settle_delay_millis"`
	Retries           *int   `json:"retries"`
	DisableAnimations *bool  `json:"disable_animations"`
	CDPURL            string `json:"cdp_url"`
}

// Region names a rectangular area of the page with an attached severity
// weight.
type Region struct {
	Name   string  `json:"name"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Weight float64 `json:"weight"`

	// Mask excludes the region from comparison entirely; Weight is ignored.
	Mask bool `json:"mask"`
}

// Config is the top-level run configuration.
type Config struct {
	TestName string         `json:"test_name"`
	Pages    []types.Page   `json:"pages"`
	Devices  []types.Device `json:"devices"`

	Concurrency int      `json:"concurrency"`
	TaskTimeout Duration `json:"task_timeout"`
	RunTimeout  Duration `json:"run_timeout"`

	// Threshold is the failing pixel-difference fraction, in [0, 1].
	Threshold           float64  `json:"threshold"`
	IncludeAntiAliasing bool     `json:"include_anti_aliasing"`
	Alpha               float64  `json:"alpha"`
	ResizePolicy        string   `json:"resize_policy"`
	DisableStructural   bool     `json:"disable_structural"`
	Regions             []Region `json:"regions"`

	ArtifactRoot string `json:"artifact_root"`
	S3Bucket     string `json:"s3_bucket"`
	S3Prefix     string `json:"s3_prefix"`
	CacheSize    int    `json:"cache_size"`

	// Severity boundaries; zero values fall back to the defaults.
	MinorSimilarity    float64 `json:"minor_similarity"`
	MinorPixelDiff     float64 `json:"minor_pixel_diff"`
	BreakingSimilarity float64 `json:"breaking_similarity"`
	BreakingPixelDiff  float64 `json:"breaking_pixel_diff"`

	Capture Capture `json:"capture"`
}

// Load reads, parses and validates a JSON5 config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	var cfg Config
	if err := json5.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating config %s", path)
	}
	return &cfg, nil
}

// Validate checks internal consistency. Unset numeric fields are legal and
// resolve to defaults later.
func (c *Config) Validate() error {
	if c.TestName == "" {
		return errors.New("test_name is required")
	}
	if len(c.Pages) == 0 {
		return errors.New("at least one page is required")
	}
	if len(c.Devices) == 0 {
		return errors.New("at least one device is required")
	}
	seen := map[string]bool{}
	for _, p := range c.Pages {
		if p.Name == "" || p.URL == "" {
			return errors.Errorf("page %q needs both name and url", p.Name)
		}
		if seen[p.Name] {
			return errors.Errorf("duplicate page name %q", p.Name)
		}
		seen[p.Name] = true
	}
	seen = map[string]bool{}
	for _, d := range c.Devices {
		if d.Name == "" || d.Width <= 0 || d.Height <= 0 {
			return errors.Errorf("device %q needs a name and positive dimensions", d.Name)
		}
		if seen[d.Name] {
			return errors.Errorf("duplicate device name %q", d.Name)
		}
		seen[d.Name] = true
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.Errorf("threshold %v outside [0, 1]", c.Threshold)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return errors.Errorf("alpha %v outside [0, 1]", c.Alpha)
	}
	if c.Concurrency < 0 {
		return errors.Errorf("concurrency %d is negative", c.Concurrency)
	}
	switch diff.ResizePolicy(c.ResizePolicy) {
	case diff.ResizeNone, diff.ResizeToBaseline:
	default:
		return errors.Errorf("unknown resize_policy %q", c.ResizePolicy)
	}
	for _, r := range c.Regions {
		if r.Width <= 0 || r.Height <= 0 {
			return errors.Errorf("region %q needs positive dimensions", r.Name)
		}
		if !r.Mask && r.Weight <= 0 {
			return errors.Errorf("region %q needs a positive weight or mask: true", r.Name)
		}
	}
	return nil
}

// DiffOptions builds the comparison options implied by the config.
func (c *Config) DiffOptions() diff.Options {
	opts := diff.Options{
		Threshold:           c.Threshold,
		IncludeAntiAliasing: c.IncludeAntiAliasing,
		Alpha:               c.Alpha,
		DiffMask:            true,
		ResizePolicy:        diff.ResizePolicy(c.ResizePolicy),
		DisableStructural:   c.DisableStructural,
	}
	for _, r := range c.Regions {
		if r.Mask {
			opts.MaskRegions = append(opts.MaskRegions, r.rect())
		}
	}
	return opts
}

// Boundaries builds the severity boundaries, substituting defaults for
// unset fields.
func (c *Config) Boundaries() severity.Boundaries {
	b := severity.DefaultBoundaries()
	if c.MinorSimilarity > 0 {
		b.MinorSimilarity = c.MinorSimilarity
	}
	if c.MinorPixelDiff > 0 {
		b.MinorPixelDiff = c.MinorPixelDiff
	}
	if c.BreakingSimilarity > 0 {
		b.BreakingSimilarity = c.BreakingSimilarity
	}
	if c.BreakingPixelDiff > 0 {
		b.BreakingPixelDiff = c.BreakingPixelDiff
	}
	return b
}

// RegionWeights builds the weighted (non-mask) regions for the severity
// classifier.
func (c *Config) RegionWeights() map[severity.Region]float64 {
	out := map[severity.Region]float64{}
	for _, r := range c.Regions {
		if r.Mask {
			continue
		}
		out[severity.Region{Name: r.Name, Rect: r.rect()}] = r.Weight
	}
	return out
}

// CaptureConfig builds the browser configuration, substituting defaults
// for unset fields.
func (c *Config) CaptureConfig() capture.Config {
	cfg := capture.DefaultConfig()
	if c.Capture.Headless != nil {
		cfg.Headless = *c.Capture.Headless
	}
	if c.Capture.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.Capture.TimeoutSeconds) * time.Second
	}
	if c.Capture.SettleDelayMillis > 0 {
		cfg.SettleDelay = time.Duration(c.Capture.SettleDelayMillis) * time.Millisecond
	}
	if c.Capture.Retries != nil && *c.Capture.Retries >= 0 {
		cfg.Retries = uint64(*c.Capture.Retries)
	}
	if c.Capture.DisableAnimations != nil {
		cfg.DisableAnimations = *c.Capture.DisableAnimations
	}
	cfg.CDPURL = c.Capture.CDPURL
	return cfg
}

func (r Region) rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}
