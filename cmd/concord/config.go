// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the concord server configuration, loaded from YAML.
type Config struct {
	Server struct {
		Port  int  `yaml:"port"`
		Debug bool `yaml:"debug"`
	} `yaml:"server"`

	Storage struct {
		DataDir  string `yaml:"data_dir"`
		InMemory bool   `yaml:"in_memory"`
	} `yaml:"storage"`

	Registry struct {
		ClosedSchemas bool `yaml:"closed_schemas"`
	} `yaml:"registry"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no config file
// is present.
func DefaultConfig() Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Storage.DataDir = "data"
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads a YAML config file over the defaults. A missing
// file is not an error; the defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
