// Zaparoo Rig
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Rig.
//
// Zaparoo Rig is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Rig is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Rig.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-rig/pkg/helpers/syncutil"
	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion  = 1
	CfgEnv         = "ZAPAROO_RIG_CFG"
	WriteModeDD    = "dd"
	WriteModeBmap  = "bmaptool"
	defaultDirPerm = 0o750
)

var (
	ErrUnknownImage = errors.New("unknown image")
	ErrInvalid      = errors.New("invalid config")
)

type Values struct {
	Images       map[string]string `toml:"images,omitempty" validate:"dive,keys,required,endkeys,required"`
	Storage      Storage           `toml:"storage"`
	Staging      Staging           `toml:"staging"`
	Telemetry    Telemetry         `toml:"telemetry,omitempty"`
	ConfigSchema int               `toml:"config_schema"`
	DebugLogging bool              `toml:"debug_logging"`
}

type Storage struct {
	Device            string   `toml:"device" validate:"required,startswith=/dev/"`
	Host              string   `toml:"host,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	Image             string   `toml:"image,omitempty"`
	WriteMode         string   `toml:"write_mode,omitempty" validate:"omitempty,oneof=dd bmaptool"`
	SSHOptions        []string `toml:"ssh_options,omitempty"`
	UnmountMaxRetries int      `toml:"unmount_max_retries" validate:"gte=0"`
}

type Staging struct {
	CacheDir string `toml:"cache_dir" validate:"required"`
}

type Telemetry struct {
	SentryDSN string `toml:"sentry_dsn,omitempty" validate:"omitempty,url"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Storage: Storage{
		WriteMode: WriteModeDD,
	},
	Staging: Staging{
		CacheDir: DefaultCacheDir,
	},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// DefaultPath returns the config file location used when none is given:
// $ZAPAROO_RIG_CFG, or config.toml in the XDG config directory.
func DefaultPath() string {
	if cfgPath := os.Getenv(CfgEnv); cfgPath != "" {
		log.Debug().Msgf("env config path: %s", cfgPath)
		return cfgPath
	}

	return filepath.Join(xdg.ConfigHome, AppName, CfgFile)
}

// DefaultLogDir returns the directory log files are written to.
func DefaultLogDir() string {
	return filepath.Join(xdg.DataHome, AppName, LogsDir)
}

// NewConfig loads the config file at cfgPath on top of defaults. A missing
// file is created from defaults first.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fs afero.Fs, cfgPath string, defaults Values) (*Instance, error) {
	cfg := Instance{
		mu:       syncutil.RWMutex{},
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		log.Info().Str("path", cfgPath).Msg("saving new default config to disk")

		err := fs.MkdirAll(filepath.Dir(cfgPath), defaultDirPerm)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err = cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	if err := Validate(&newVals); err != nil {
		return err
	}

	c.vals = newVals
	return nil
}

// Validate checks vals for missing or malformed settings.
func Validate(vals *Values) error {
	if err := validate.Struct(vals); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fe := validationErrors[0]
			return fmt.Errorf(
				"%w: %s failed %q check (value %q)",
				ErrInvalid, fe.Namespace(), fe.Tag(), fe.Value(),
			)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if vals.Storage.Image != "" {
		if _, ok := vals.Images[vals.Storage.Image]; !ok {
			return fmt.Errorf(
				"%w: storage.image %q is not defined in [images]",
				ErrInvalid, vals.Storage.Image,
			)
		}
	}

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	return c.cfgPath
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) SentryDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.SentryDSN
}

func (c *Instance) CacheDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Staging.CacheDir
}
