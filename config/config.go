// Copyright 2024 The Slate Authors
// This file is part of Slate.
//
// Slate is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Slate is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Slate. If not, see <http://www.gnu.org/licenses/>.

// Package config loads VM tuning parameters (stack/frame capacity, the
// default float width used by DIVIDE when no operand fixes it) from TOML.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// tomlSettings keeps TOML keys matching Go struct tags exactly, the same
// convention the rest of this codebase's configuration loader uses.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey: func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Settings are the VM tuning knobs leaves to "implementation
// chooses a size".
type Settings struct {
	StackCapacity int `toml:"stack_capacity"`
	FrameCapacity int `toml:"frame_capacity"`
	DefaultFloatWidth string `toml:"default_float_width"` // "float32" or "float64"
}

// Default mirrors the recommendations named directly in : 256 for
// the operand stack, 512 for nested call frames.
func Default() Settings {
	return Settings{
		StackCapacity: 256,
		FrameCapacity: 512,
		DefaultFloatWidth: "float64",
	}
}

// Load reads and merges a TOML config file over Default, tolerating a
// missing file (returns the default unchanged).
func Load(file string) (Settings, error) {
	cfg := Default()
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return cfg, err
}
