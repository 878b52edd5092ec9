package config

import (
	"fmt"
	"os"

	"github.com/quocanhngo/airguard/internal/airquality"
	"gopkg.in/yaml.v3"
)

// thresholdsFile is the YAML layout of THRESHOLDS_FILE:
//
//	defaults:
//	  co2: {min: 400, max: 1000}
//	devices:
//	  lab-1:
//	    co2: {max: 800}
type thresholdsFile struct {
	Defaults airquality.LimitsOverride            `yaml:"defaults"`
	Devices  map[string]airquality.LimitsOverride `yaml:"devices"`
}

// LoadThresholds builds the threshold provider. An empty path yields the
// built-in limits for every device.
func LoadThresholds(path string) (airquality.ThresholdProvider, error) {
	if path == "" {
		return airquality.StaticThresholds{Limits: airquality.DefaultLimits()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds file: %w", err)
	}
	return ParseThresholds(data)
}

// ParseThresholds decodes a thresholds YAML document
func ParseThresholds(data []byte) (airquality.ThresholdProvider, error) {
	var f thresholdsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("thresholds YAML parse error: %w", err)
	}

	defaults := f.Defaults.Apply(airquality.DefaultLimits())
	if err := validateLimits("defaults", defaults); err != nil {
		return nil, err
	}
	for uid, o := range f.Devices {
		if err := validateLimits(uid, o.Apply(defaults)); err != nil {
			return nil, err
		}
	}

	if len(f.Devices) == 0 {
		return airquality.StaticThresholds{Limits: defaults}, nil
	}
	return airquality.DeviceThresholds{Defaults: defaults, Overrides: f.Devices}, nil
}

func validateLimits(scope string, l airquality.Limits) error {
	for _, m := range airquality.Metrics {
		if b := l.Band(m); b.Min > b.Max {
			return fmt.Errorf("thresholds %s: %s min %.1f is above max %.1f", scope, m, b.Min, b.Max)
		}
	}
	return nil
}
