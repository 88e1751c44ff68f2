// Package config loads lanewatch settings from an optional config file and
// LANEWATCH_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/swdee/go-lanewatch"
	"github.com/swdee/go-lanewatch/postprocess"
	"github.com/swdee/go-lanewatch/source"
)

// EnvPrefix is the prefix of every environment variable read, eg:
// LANEWATCH_TRACKER_MAX_AGE overrides tracker.max_age
const EnvPrefix = "LANEWATCH"

// Config is the complete settings of a lanewatch run
type Config struct {
	// Environment is "development" for console logging or "production" for
	// JSON logging
	Environment string
	LogLevel    string
	// Source is the JSON lines detection file to process
	Source      string
	RegionsFile string
	LabelsFile  string
	// DBPath is the sqlite database events are stored in, empty disables it
	DBPath string
	// ReportPath is where the JSON summary is written, empty disables it
	ReportPath string
	// Workers is the number of Sessions in the pool
	Workers int
	// FrameWidth and FrameHeight rescale the regions to the video size when
	// they were drawn on a different canvas, zero leaves them as is
	FrameWidth  int
	FrameHeight int
	// InputWidth and InputHeight are the detector input size raw detections
	// are letterboxed to, zero when raw boxes are already in frame pixels
	InputWidth  int
	InputHeight int
	// NMSThreshold suppresses overlapping raw detections, 0 disables it
	NMSThreshold float64
	// Params are the Session tunables
	Params lanewatch.Params
}

// setDefaults registers every key so environment variables are picked up
// for them
func setDefaults(v *viper.Viper) {

	p := lanewatch.DefaultParams()

	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("source", "")
	v.SetDefault("regions_file", "")
	v.SetDefault("labels_file", "")
	v.SetDefault("db_path", "")
	v.SetDefault("report_path", "")
	v.SetDefault("workers", 1)
	v.SetDefault("frame_width", 0)
	v.SetDefault("frame_height", 0)
	v.SetDefault("input_width", 0)
	v.SetDefault("input_height", 0)
	v.SetDefault("nms_threshold", 0.0)

	v.SetDefault("tracker.max_age", p.Tracker.MaxAge)
	v.SetDefault("tracker.min_hits", p.Tracker.MinHits)
	v.SetDefault("tracker.trail_length", p.Tracker.TrailLength)
	v.SetDefault("tracker.class_lock_hits", p.Tracker.ClassLockHits)
	v.SetDefault("tracker.max_tracks", p.Tracker.MaxTracks)
	v.SetDefault("tracker.confidence_floor", p.Tracker.Association.ConfidenceFloor)
	v.SetDefault("tracker.gating_radius", p.Tracker.Association.GatingRadius)
	v.SetDefault("tracker.iou_weight", p.Tracker.Association.IoUWeight)
	v.SetDefault("tracker.max_match_cost", p.Tracker.Association.MaxMatchCost)

	v.SetDefault("violation.consecutive_frames", p.Violation.ConsecutiveFrames)
	v.SetDefault("violation.cooldown_frames", p.Violation.CooldownFrames)

	v.SetDefault("violation.score_threshold", p.ScoreThreshold)
	v.SetDefault("frame_skip", p.FrameSkip)
	v.SetDefault("selected_zones", []string{})
}

// Load reads settings from the config file at path, or when path is empty
// from lanewatch.{yaml,json,toml} in the working directory or ./config if
// one exists.  Environment variables take precedence over the file
func Load(path string) (*Config, error) {

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

	} else {
		v.SetConfigName("lanewatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")

		var notFound viper.ConfigFileNotFoundError

		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Environment: v.GetString("env"),
		LogLevel:    v.GetString("log_level"),
		Source:      v.GetString("source"),
		RegionsFile: v.GetString("regions_file"),
		LabelsFile:  v.GetString("labels_file"),
		DBPath:      v.GetString("db_path"),
		ReportPath:  v.GetString("report_path"),
		Workers:     v.GetInt("workers"),
		FrameWidth:  v.GetInt("frame_width"),
		FrameHeight: v.GetInt("frame_height"),
		InputWidth:  v.GetInt("input_width"),
		InputHeight: v.GetInt("input_height"),

		NMSThreshold: v.GetFloat64("nms_threshold"),
	}

	p := &cfg.Params

	p.Tracker.MaxAge = v.GetInt("tracker.max_age")
	p.Tracker.MinHits = v.GetInt("tracker.min_hits")
	p.Tracker.TrailLength = v.GetInt("tracker.trail_length")
	p.Tracker.ClassLockHits = v.GetInt("tracker.class_lock_hits")
	p.Tracker.MaxTracks = v.GetInt("tracker.max_tracks")
	p.Tracker.Association.ConfidenceFloor = v.GetFloat64("tracker.confidence_floor")
	p.Tracker.Association.GatingRadius = v.GetFloat64("tracker.gating_radius")
	p.Tracker.Association.IoUWeight = v.GetFloat64("tracker.iou_weight")
	p.Tracker.Association.MaxMatchCost = v.GetFloat64("tracker.max_match_cost")

	p.Violation.ConsecutiveFrames = v.GetInt("violation.consecutive_frames")
	p.Violation.CooldownFrames = v.GetInt("violation.cooldown_frames")

	p.ScoreThreshold = v.GetFloat64("violation.score_threshold")
	p.FrameSkip = v.GetInt("frame_skip")
	p.SelectedZones = splitList(v.GetStringSlice("selected_zones"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList accepts list values given either as a real list or a single
// comma separated string from the environment
func splitList(in []string) []string {

	var out []string

	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// Validate checks the settings are usable
func (c *Config) Validate() error {

	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if (c.FrameWidth == 0) != (c.FrameHeight == 0) {
		return fmt.Errorf("frame width and height must both be set, got %dx%d",
			c.FrameWidth, c.FrameHeight)
	}

	if c.FrameWidth < 0 || c.FrameHeight < 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.FrameWidth, c.FrameHeight)
	}

	if (c.InputWidth == 0) != (c.InputHeight == 0) || c.InputWidth < 0 || c.InputHeight < 0 {
		return fmt.Errorf("invalid detector input size %dx%d", c.InputWidth, c.InputHeight)
	}

	if c.InputWidth > 0 && c.FrameWidth == 0 {
		return errors.New("detector input size needs the frame size set")
	}

	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold %v outside of [0,1]", c.NMSThreshold)
	}

	return nil
}

// Resolver returns a source Resolver applying the detector input letterbox
// and NMS settings
func (c *Config) Resolver(classes postprocess.ClassMap) *source.Resolver {

	r := source.NewResolver(classes)
	r.NMSThreshold = float32(c.NMSThreshold)

	if c.InputWidth > 0 {
		lb := postprocess.NewLetterbox(c.FrameWidth, c.FrameHeight, c.InputWidth, c.InputHeight)
		r.Letterbox = &lb
	}

	return r
}
