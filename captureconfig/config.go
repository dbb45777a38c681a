// Package captureconfig loads named device profiles for the capture CLI:
// an embedded default set merged with an optional user override file, plus
// shorthand resolution of a bare profile name to its device path and
// tunables.
package captureconfig

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sergev/simhcapture/capture"
)

//go:embed default.toml
var defaultConfigData []byte

// Config is the decoded shape of a profile TOML document.
type Config struct {
	Default string    `toml:"default"`
	Profile []Profile `toml:"profile"`
}

// Profile is a named device configuration.
type Profile struct {
	Name          string `toml:"name"`
	Path          string `toml:"path"`
	BufferSize    int    `toml:"buffer_size"`
	QueueDepth    int    `toml:"queue_depth"`
	MaxReattempts int    `toml:"max_reattempts"`
}

// Options renders the profile's tunables as capture.Options, applying
// capture's own defaults for anything left unset.
func (p Profile) Options() capture.Options {
	opts := capture.DefaultOptions()
	if p.BufferSize > 0 {
		opts.BufferSize = p.BufferSize
	}
	if p.QueueDepth > 0 {
		opts.QueueDepth = p.QueueDepth
	}
	if p.MaxReattempts > 0 {
		opts.MaxReattempts = p.MaxReattempts
	}
	opts.BackoffBaseDelay = 10 * time.Millisecond
	opts.Device = p.Path
	return opts
}

// Load decodes the embedded default configuration merged with an optional
// user override file at the platform's config directory
// ($XDG_CONFIG_HOME/simhcapture/config.toml or its OS equivalent). A
// missing override file is not an error.
func Load() (Config, error) {
	var conf Config
	if _, err := toml.Decode(string(defaultConfigData), &conf); err != nil {
		return Config{}, fmt.Errorf("captureconfig: decode embedded default: %w", err)
	}

	path, err := userConfigPath()
	if err != nil {
		return conf, nil
	}
	if _, err := os.Stat(path); err != nil {
		return conf, nil
	}

	var override Config
	if _, err := toml.DecodeFile(path, &override); err != nil {
		return Config{}, fmt.Errorf("captureconfig: parse %s: %w", path, err)
	}
	if override.Default != "" {
		conf.Default = override.Default
	}
	conf.Profile = mergeProfiles(conf.Profile, override.Profile)
	return conf, nil
}

func mergeProfiles(base, override []Profile) []Profile {
	byName := make(map[string]int, len(base))
	merged := make([]Profile, len(base))
	copy(merged, base)
	for i, p := range merged {
		byName[p.Name] = i
	}
	for _, p := range override {
		if i, ok := byName[p.Name]; ok {
			merged[i] = p
		} else {
			merged = append(merged, p)
		}
	}
	return merged
}

func userConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(dir, "simhcapture", "config.toml"), nil
}

// Resolve looks up nameOrPath as a configured profile name; if no profile
// matches, it is treated as a literal device path (or "-" for standard
// input) and returned with the built-in defaults.
func Resolve(conf Config, nameOrPath string) (Profile, error) {
	for _, p := range conf.Profile {
		if p.Name == nameOrPath {
			return p, nil
		}
	}
	if nameOrPath == "" {
		return Profile{}, errors.New("captureconfig: empty device name or path")
	}
	defaults := capture.DefaultOptions()
	return Profile{
		Name:          nameOrPath,
		Path:          nameOrPath,
		BufferSize:    defaults.BufferSize,
		QueueDepth:    defaults.QueueDepth,
		MaxReattempts: defaults.MaxReattempts,
	}, nil
}
