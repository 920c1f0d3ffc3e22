// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the curation engine configuration from YAML.
//
// Defaults come from an embedded default.yaml. A user file overrides any
// subset of keys. Unknown keys are an error naming the key, so a typo
// never silently falls back to a default.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
)

//go:embed default.yaml
var defaultYAML []byte

// EnvConfigPath names the environment variable consulted by Resolve.
const EnvConfigPath = "SPIKECURATOR_CONFIG"

// Config is the complete engine configuration.
type Config struct {
	// MaxVisibleUnits caps simultaneously visible units.
	MaxVisibleUnits int `yaml:"max_visible_units" validate:"min=1,max=1000"`

	// Bus selects the notification adapter.
	Bus string `yaml:"bus" validate:"oneof=direct reactive"`

	// MaxDispatchDepth limits re-entrant event nesting.
	MaxDispatchDepth int `yaml:"max_dispatch_depth" validate:"min=1,max=1024"`

	RandomSubsample RandomSubsample `yaml:"random_subsample"`

	// LabelDefinitions replaces the default label categories when set.
	LabelDefinitions map[string]ledger.LabelDefinition `yaml:"label_definitions" validate:"min=1"`

	// Views lists the views created when a session starts.
	Views []ViewSpec `yaml:"views" validate:"dive"`

	Storage   Storage   `yaml:"storage"`
	Logging   Logging   `yaml:"logging"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// RandomSubsample configures the frozen per-unit random subsample.
type RandomSubsample struct {
	// MaxPerUnit is the sample size per unit. Zero disables the subsample.
	MaxPerUnit int   `yaml:"max_per_unit" validate:"min=0"`
	Seed       int64 `yaml:"seed"`
}

// ViewSpec names a view kind and its settings.
type ViewSpec struct {
	Kind     string         `yaml:"kind" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// Storage configures the snapshot store.
type Storage struct {
	Path     string `yaml:"path" validate:"required_unless=InMemory true"`
	InMemory bool   `yaml:"in_memory"`
}

// Logging configures pkg/logging.
type Logging struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// Telemetry selects the OpenTelemetry exporters.
type Telemetry struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
}

var (
	cfgValidate     *validator.Validate
	cfgValidateOnce sync.Once

	unknownFieldRE = regexp.MustCompile(`field (\S+) not found in type (\S+)`)
)

func validate() *validator.Validate {
	cfgValidateOnce.Do(func() {
		cfgValidate = validator.New()
		cfgValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return cfgValidate
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := decode(defaultYAML, &Config{})
	if err != nil {
		panic(fmt.Sprintf("embedded default.yaml: %v", err))
	}
	return cfg
}

// Parse overlays data on the defaults and validates the result.
//
// Description:
//
//	Every key of data replaces the default. label_definitions and views
//	are replaced as a whole when present. An empty document yields the
//	defaults.
//
// Outputs:
//
//	*Config - The effective configuration.
//	error - ErrUnknownSetting naming the first unknown key, or
//	  ErrInvalidSetting describing the first failed constraint.
func Parse(data []byte) (*Config, error) {
	base := Default()
	defs, views := base.LabelDefinitions, base.Views
	base.LabelDefinitions, base.Views = nil, nil

	cfg, err := decode(data, base)
	if err != nil {
		return nil, err
	}
	if cfg.LabelDefinitions == nil {
		cfg.LabelDefinitions = defs
	}
	if cfg.Views == nil {
		cfg.Views = views
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads path, or the file named by SPIKECURATOR_CONFIG when path
// is empty, or returns the defaults when neither is set.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every constraint, including each label definition.
func (c *Config) Validate() error {
	if err := validate().Struct(c); err != nil {
		return validationError(err)
	}
	cats := make([]string, 0, len(c.LabelDefinitions))
	for k := range c.LabelDefinitions {
		cats = append(cats, k)
	}
	sort.Strings(cats)
	for _, k := range cats {
		if err := validate().Struct(c.LabelDefinitions[k]); err != nil {
			return fmt.Errorf("label_definitions.%s: %w", k, validationError(err))
		}
	}
	return nil
}

func decode(data []byte, into *Config) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return nil, yamlError(err)
	}
	return into, nil
}

// yamlError maps the decoder's unknown-field report to ErrUnknownSetting.
func yamlError(err error) error {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		for _, msg := range te.Errors {
			if m := unknownFieldRE.FindStringSubmatch(msg); m != nil {
				return fmt.Errorf("%w: %q (in %s)", ErrUnknownSetting, m[1], m[2])
			}
		}
		return fmt.Errorf("%w: %s", ErrInvalidSetting, strings.Join(te.Errors, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		if fe.Param() != "" {
			return fmt.Errorf("%w: %s must satisfy %s=%s, got %v", ErrInvalidSetting, fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%w: %s must satisfy %s", ErrInvalidSetting, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
}
