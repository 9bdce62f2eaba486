package sim

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RunBundle holds run configuration, loadable from a YAML file.
// Nil pointer fields mean "not set in YAML"; they do not override defaults or flags.
// String fields use empty string for "not set".
type RunBundle struct {
	Steps           *int     `yaml:"steps" validate:"omitempty,gte=0"`
	Seed            *uint64  `yaml:"seed"`
	Mode            string   `yaml:"mode"`
	DisplayInterval *int     `yaml:"display_interval" validate:"omitempty,gte=1"`
	Quiet           *bool    `yaml:"quiet"`
	Zones           *int     `yaml:"zones" validate:"omitempty,gte=1,lte=4096"`
	BatchFraction   *float64 `yaml:"batch_fraction" validate:"omitempty,gt=0,lte=1"`
	BaseILF         *float64 `yaml:"base_ilf" validate:"omitempty,gt=0"`
	StaticILF       *bool    `yaml:"static_ilf"`
	BinaryThreshold *int     `yaml:"binary_threshold" validate:"omitempty,gte=1"`
}

var bundleValidate = validator.New()

// LoadRunBundle reads and parses a YAML run configuration file.
// Unknown keys are rejected so typos surface as errors.
func LoadRunBundle(path string) (*RunBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var bundle RunBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &bundle, nil
}

// Validate checks the mode name and every parameter range in the bundle.
func (b *RunBundle) Validate() error {
	if b.Mode != "" {
		if _, err := ParseUpdateMode(b.Mode); err != nil {
			return err
		}
	}
	if err := bundleValidate.Struct(b); err != nil {
		return fmt.Errorf("invalid run config: %w", err)
	}
	return nil
}

// Apply overlays the set fields of the bundle on cfg.
func (b *RunBundle) Apply(cfg Config) Config {
	if b.BatchFraction != nil {
		cfg.BatchFraction = *b.BatchFraction
	}
	if b.BaseILF != nil {
		cfg.BaseILF = *b.BaseILF
	}
	if b.StaticILF != nil {
		cfg.StaticILF = *b.StaticILF
	}
	if b.BinaryThreshold != nil {
		cfg.BinaryThreshold = *b.BinaryThreshold
	}
	return cfg
}
