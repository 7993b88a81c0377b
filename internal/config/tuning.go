package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/targetfusion/internal/fusion"
)

// TuningConfig represents the recognized tuning options for the fusion
// service. All fields are optional pointers so a partial JSON file can
// override just the values it names; the Get* accessors supply defaults
// for everything else. The schema matches the /api/fusion/params endpoint
// so the same JSON serves startup configuration and runtime inspection.
type TuningConfig struct {
	// Fusion params
	TargetClass            *string  `json:"target_class,omitempty"`
	MatchDistance          *float64 `json:"match_distance,omitempty"`
	ProximityThreshold     *float64 `json:"proximity_threshold,omitempty"`
	CloudRadius            *float64 `json:"cloud_radius,omitempty"`
	MinCloudPoints         *int     `json:"min_cloud_points,omitempty"`
	MissCyclesForDepthOnly *int     `json:"miss_cycles_for_depth_only,omitempty"`
	BestPolicy             *string  `json:"best_policy,omitempty"`
	CandidateMaxAge        *string  `json:"candidate_max_age,omitempty"` // duration string like "30s"; empty disables expiry
	HeightCompensation     *float64 `json:"height_compensation,omitempty"`

	// Frame params
	GlobalFrame *string `json:"global_frame,omitempty"`
	BodyFrame   *string `json:"body_frame,omitempty"`

	// Monitor params
	ShowDetection *bool `json:"show_detection,omitempty"`
	EvalHistory   *int  `json:"eval_history,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.MatchDistance != nil && *c.MatchDistance <= 0 {
		return fmt.Errorf("match_distance must be positive, got %f", *c.MatchDistance)
	}
	if c.ProximityThreshold != nil && *c.ProximityThreshold <= 0 {
		return fmt.Errorf("proximity_threshold must be positive, got %f", *c.ProximityThreshold)
	}
	if c.CloudRadius != nil && *c.CloudRadius <= 0 {
		return fmt.Errorf("cloud_radius must be positive, got %f", *c.CloudRadius)
	}
	if c.MinCloudPoints != nil && *c.MinCloudPoints < 1 {
		return fmt.Errorf("min_cloud_points must be >= 1, got %d", *c.MinCloudPoints)
	}
	if c.MissCyclesForDepthOnly != nil && *c.MissCyclesForDepthOnly < 1 {
		return fmt.Errorf("miss_cycles_for_depth_only must be >= 1, got %d", *c.MissCyclesForDepthOnly)
	}
	if c.BestPolicy != nil {
		switch fusion.BestCandidatePolicy(*c.BestPolicy) {
		case fusion.BestMostRecent, fusion.BestHighestConfidence:
		default:
			return fmt.Errorf("unknown best_policy %q", *c.BestPolicy)
		}
	}
	if c.CandidateMaxAge != nil && *c.CandidateMaxAge != "" {
		if _, err := time.ParseDuration(*c.CandidateMaxAge); err != nil {
			return fmt.Errorf("invalid candidate_max_age '%s': %w", *c.CandidateMaxAge, err)
		}
	}
	return nil
}

// GetTargetClass returns the target_class value or the default.
func (c *TuningConfig) GetTargetClass() string {
	if c.TargetClass == nil || *c.TargetClass == "" {
		return "box"
	}
	return *c.TargetClass
}

// GetMatchDistance returns the match_distance value or the default.
func (c *TuningConfig) GetMatchDistance() float64 {
	if c.MatchDistance == nil {
		return 1.0
	}
	return *c.MatchDistance
}

// GetProximityThreshold returns the proximity_threshold value or the default.
func (c *TuningConfig) GetProximityThreshold() float64 {
	if c.ProximityThreshold == nil {
		return 0.5
	}
	return *c.ProximityThreshold
}

// GetCloudRadius returns the cloud_radius value or the default.
func (c *TuningConfig) GetCloudRadius() float64 {
	if c.CloudRadius == nil {
		return 0.5
	}
	return *c.CloudRadius
}

// GetMinCloudPoints returns the min_cloud_points value or the default.
func (c *TuningConfig) GetMinCloudPoints() int {
	if c.MinCloudPoints == nil {
		return 20
	}
	return *c.MinCloudPoints
}

// GetMissCyclesForDepthOnly returns the miss cycle threshold or the default.
func (c *TuningConfig) GetMissCyclesForDepthOnly() int {
	if c.MissCyclesForDepthOnly == nil {
		return 5
	}
	return *c.MissCyclesForDepthOnly
}

// GetBestPolicy returns the best_policy value or the default.
func (c *TuningConfig) GetBestPolicy() fusion.BestCandidatePolicy {
	if c.BestPolicy == nil || *c.BestPolicy == "" {
		return fusion.BestMostRecent
	}
	return fusion.BestCandidatePolicy(*c.BestPolicy)
}

// GetCandidateMaxAge parses and returns candidate_max_age; zero disables
// expiry.
func (c *TuningConfig) GetCandidateMaxAge() time.Duration {
	if c.CandidateMaxAge == nil || *c.CandidateMaxAge == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.CandidateMaxAge)
	if err != nil {
		return 0
	}
	return d
}

// GetHeightCompensation returns the height_compensation value or zero.
func (c *TuningConfig) GetHeightCompensation() float64 {
	if c.HeightCompensation == nil {
		return 0
	}
	return *c.HeightCompensation
}

// GetGlobalFrame returns the global_frame value or the default.
func (c *TuningConfig) GetGlobalFrame() string {
	if c.GlobalFrame == nil || *c.GlobalFrame == "" {
		return "earth"
	}
	return *c.GlobalFrame
}

// GetBodyFrame returns the body_frame value or the default.
func (c *TuningConfig) GetBodyFrame() string {
	if c.BodyFrame == nil || *c.BodyFrame == "" {
		return "base_link"
	}
	return *c.BodyFrame
}

// GetShowDetection returns the show_detection value or the default.
func (c *TuningConfig) GetShowDetection() bool {
	if c.ShowDetection == nil {
		return false
	}
	return *c.ShowDetection
}

// GetEvalHistory returns the eval_history length or the default.
func (c *TuningConfig) GetEvalHistory() int {
	if c.EvalHistory == nil {
		return 2048
	}
	return *c.EvalHistory
}

// FusionConfig assembles the engine configuration from the tuning values.
func (c *TuningConfig) FusionConfig() fusion.Config {
	cfg := fusion.DefaultConfig()
	cfg.TargetClass = c.GetTargetClass()
	cfg.MatchDistance = c.GetMatchDistance()
	cfg.ProximityThreshold = c.GetProximityThreshold()
	cfg.Refine.Radius = c.GetCloudRadius()
	cfg.Refine.MinPoints = c.GetMinCloudPoints()
	cfg.MissCyclesForDepthOnly = c.GetMissCyclesForDepthOnly()
	cfg.GlobalFrame = c.GetGlobalFrame()
	cfg.BodyFrame = c.GetBodyFrame()
	cfg.BestPolicy = c.GetBestPolicy()
	cfg.CandidateMaxAge = c.GetCandidateMaxAge()
	cfg.HeightCompensation = c.GetHeightCompensation()
	cfg.ShowDetection = c.GetShowDetection()
	return cfg
}
