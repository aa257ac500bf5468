package common

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KI7MT/ki7mt-eef/internal/eef"
)

// ModelFile is the YAML form of an eef.Config. Absent keys leave the
// corresponding setting unchanged.
//
//	cadence_seconds: 300
//	longitude_degrees: -76.87
//	start_instant: "2015-03-17T00:00:00Z"
//	apply_gain: true
//	apply_delay: true
//	delay_seconds: 1020
//	verbose: false
type ModelFile struct {
	CadenceSeconds *float64 `yaml:"cadence_seconds"`
	Longitude      *float64 `yaml:"longitude_degrees"`
	StartInstant   string   `yaml:"start_instant"`
	ApplyGain      *bool    `yaml:"apply_gain"`
	ApplyDelay     *bool    `yaml:"apply_delay"`
	DelaySeconds   *float64 `yaml:"delay_seconds"`
	Verbose        *bool    `yaml:"verbose"`
}

// LoadModelFile reads a model configuration from YAML.
func LoadModelFile(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m ModelFile
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &m, nil
}

// Apply overlays the keys present in m onto cfg.
func (m *ModelFile) Apply(cfg *eef.Config) error {
	if m.CadenceSeconds != nil {
		cfg.Cadence = seconds(*m.CadenceSeconds)
	}
	if m.Longitude != nil {
		lon := *m.Longitude
		cfg.Longitude = &lon
	}
	if m.StartInstant != "" {
		start, err := eef.ParseInstant(m.StartInstant)
		if err != nil {
			return fmt.Errorf("start_instant: %w", err)
		}
		cfg.Start = start
	}
	if m.ApplyGain != nil {
		cfg.ApplyGain = *m.ApplyGain
	}
	if m.ApplyDelay != nil {
		cfg.ApplyDelay = *m.ApplyDelay
	}
	if m.DelaySeconds != nil {
		cfg.Delay = seconds(*m.DelaySeconds)
	}
	if m.Verbose != nil {
		cfg.Verbose = *m.Verbose
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
