// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk tuning surface for embeddings that want to pick a
// Heap's user alignment or address-space reservation from a file rather
// than wiring up Options by hand. It is additive: the zero Config yields
// no options, and a bare Heap{} remains usable without ever touching this
// type.
type Config struct {
	UserAlign        uintptr `yaml:"user_align"`
	ReservationBytes uintptr `yaml:"reservation_bytes"`
}

// LoadConfig decodes a YAML document into a Config.
func LoadConfig(r io.Reader) (*Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("nanoheap: decode config: %w", err)
	}
	return &c, nil
}

// Options translates a Config into the Option values New expects, omitting
// any field left at its zero value.
func (c *Config) Options() []Option {
	var opts []Option
	if c.UserAlign != 0 {
		opts = append(opts, WithUserAlign(c.UserAlign))
	}
	if c.ReservationBytes != 0 {
		opts = append(opts, WithReservation(c.ReservationBytes))
	}
	return opts
}
