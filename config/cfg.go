package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	StylingConfig struct {
		Stylesheets []string `yaml:"stylesheets" validate:"dive,required"`
		// Native selector support: "auto" probes environment with ProbeScript
		Native      string `yaml:"native" validate:"required,oneof=auto on off"`
		ProbeScript string `yaml:"probe_script" sanitize:"assure_file_access"`
		Metrics     bool   `yaml:"metrics"`
	}

	PreviewConfig struct {
		Width  int     `yaml:"width" validate:"min=50,max=8192"`
		Height int     `yaml:"height" validate:"gte=0,max=8192"`
		Scale  float64 `yaml:"scale" validate:"gt=0,lte=8"`
	}

	OutputConfig struct {
		Template string        `yaml:"template" validate:"required"`
		Passes   int           `yaml:"passes" validate:"min=1"`
		Preview  PreviewConfig `yaml:"preview"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Styling   StylingConfig  `yaml:"styling"`
		Output    OutputConfig   `yaml:"output"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// outputTemplateField is executed later for every resolved view and must not
// be expanded by gencfg. Must match yaml field name above.
const outputTemplateField = "template"

func processingOptions(extra ...func(*gencfg.ProcessingOptions)) []func(*gencfg.ProcessingOptions) {
	return append([]func(*gencfg.ProcessingOptions){gencfg.WithDoNotExpandField(outputTemplateField)}, extra...)
}

// decode superimposes data on cfg. Unknown fields are errors.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return nil
}

func check(cfg *Config) error {
	if err := gencfg.Sanitize(cfg); err != nil {
		return fmt.Errorf("configuration sanitizing failed: %w", err)
	}
	if err := gencfg.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// LoadConfiguration expands embedded template to get defaults, puts values
// from file at path (if any) on top and validates the result.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	defaults, err := gencfg.Process(ConfigTmpl, processingOptions(options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}

	cfg := &Config{}
	if err := decode(defaults, cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}

	if err := check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Prepare returns expanded default configuration.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, processingOptions()...)
}

// Dump returns configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
