// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".jsdoc-closure.yaml"

// Load reads the configuration.
//
// Description:
//
//	An explicit path must exist. Without one, FileName in the working
//	directory is used when present, then ~/.config/jsdoc-closure/config.yaml.
//	Keys missing from the file keep their DefaultConfig values. The result
//	is validated.
//
// Outputs:
//
//	Config - The configuration.
//	string - The file read, "" when only defaults were used.
//	error - Read, parse, or validation errors.
func Load(explicit string) (Config, string, error) {
	cfg := DefaultConfig()

	path := explicit
	if path == "" {
		path = discover()
	}
	if path == "" {
		return cfg, "", cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, "", fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// Decode parses YAML over cfg, rejecting unknown keys.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func discover() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "jsdoc-closure", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
// An existing file is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath replaces a leading "~" with the home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
