package main

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// fileConfig is the optional YAML configuration of serve. Flags set on the
// command line win over file values.
type fileConfig struct {
	Address      string          `yaml:"address"`
	Debug        bool            `yaml:"debug"`
	Profiling    bool            `yaml:"profiling"`
	WatchDir     string          `yaml:"watchDir"`
	FeatureGates map[string]bool `yaml:"featureGates"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config %s", path)
	}
	c := &fileConfig{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrapf(err, "error parsing config %s", path)
	}
	return c, nil
}

// featureGateString renders the gates as the comma separated form accepted
// by the --feature-gates flag.
func (c *fileConfig) featureGateString() string {
	names := make([]string, 0, len(c.FeatureGates))
	for name := range c.FeatureGates {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+strconv.FormatBool(c.FeatureGates[name]))
	}
	return strings.Join(pairs, ",")
}

// applyTo copies file values into o for every flag left at its default.
func (c *fileConfig) applyTo(o *serveOptions, flags *pflag.FlagSet) {
	if !flags.Changed("address") && c.Address != "" {
		o.address = c.Address
	}
	if !flags.Changed("debug") && c.Debug {
		o.debug = true
	}
	if !flags.Changed("profiling") && c.Profiling {
		o.profiling = true
	}
	if !flags.Changed("watch-dir") && c.WatchDir != "" {
		o.watchDir = c.WatchDir
	}
}
