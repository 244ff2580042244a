package config

import (
	_ "embed" // because we embed a file
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
)

// ConfigVersion is the current version of the config file schema.
const ConfigVersion = 1

//go:embed default-config.json
var defaultConfig []byte

// WriteDefault writes the default config, with every default applied,
// to path and returns it.
func WriteDefault(path string) (*Config, error) {
	c, err := ParseConfig(defaultConfig)
	if err != nil {
		return nil, errors.Wrap(err, "parsing default config")
	}
	c.path = path
	if err := c.Write(); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadConfig reads the configuration from the path. On failure to
// read the file the original error is returned unwrapped so that
// callers can check for fs.ErrNotExist.
func ReadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseConfig(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	c.path = path
	return c, nil
}

// ParseConfig returns config from JSON bytes. Comments and trailing
// commas are accepted.
func ParseConfig(b []byte) (*Config, error) {
	var c Config

	std, err := hujson.Standardize(b)
	if err != nil {
		return nil, errors.Wrap(err, "standardizing json")
	}
	if err := json.Unmarshal(std, &c); err != nil {
		return nil, errors.Wrap(err, "parsing json")
	}
	if err := c.Default(); err != nil {
		return nil, errors.Wrap(err, "defaulting")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}
	return &c, nil
}

// Config for a basiccleaning home directory.
type Config struct {
	Comment string `json:"_"`
	Version int64  `json:"_version"`

	// Project groups the runs recorded by the tracker.
	Project string `json:"project"`

	Cleaning Cleaning `json:"cleaning"`
	Tracking Tracking `json:"tracking"`
	Store    Store    `json:"store"`

	mutex sync.Mutex
	path  string
}

// Path returns the path the config was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// Write the config file in json to the path.
func (c *Config) Write() error {
	c.Lock()
	defer c.Unlock()
	if c.path == "" {
		return errors.New("config file path is empty")
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling config JSON")
	}
	if err := os.WriteFile(c.path, configJSON, 0644); err != nil {
		return errors.Wrap(err, "writing config JSON")
	}
	return nil
}

// Lock acquires the write mutex.
func (c *Config) Lock() {
	c.mutex.Lock()
}

// Unlock releases the write mutex.
func (c *Config) Unlock() {
	c.mutex.Unlock()
}

// Default fills in the settings left empty by the config file.
func (c *Config) Default() error {
	if c.Version == 0 {
		c.Version = ConfigVersion
	}
	if c.Project == "" {
		c.Project = DefaultProject
	}
	if c.Cleaning.DatePolicy == "" {
		c.Cleaning.DatePolicy = DatePolicyStrict
	}
	return nil
}

// Validate the config file.
func (c *Config) Validate() error {
	if c.Version > ConfigVersion {
		return errors.Errorf("unsupported config version %d", c.Version)
	}
	switch c.Cleaning.DatePolicy {
	case DatePolicyStrict, DatePolicyCoerce:
	default:
		return errors.Errorf("invalid date_policy %q", c.Cleaning.DatePolicy)
	}
	return nil
}
