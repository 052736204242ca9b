package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// EffectSpec declares one effect label and, optionally, its parent in
// the single-level effect hierarchy.
type EffectSpec struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// Duration is a time.Duration that unmarshals from Go duration
// strings ("500ms", "5s") or bare integers taken as milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ms int64
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string or integer milliseconds")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Options configures one analysis run. The zero value is not usable;
// start from Default() or Load().
type Options struct {
	// Workers bounds parallel analysis of independent units.
	Workers int `yaml:"workers"`

	// Effects is the effect label registry. When empty, the built-in
	// registry (network/filesystem/database/process families) is used.
	Effects []EffectSpec `yaml:"effects"`

	// ObligationBudget limits execution of a single verification
	// obligation (static folding plus property samples).
	ObligationBudget Duration `yaml:"obligation_budget"`

	// UnitBudget limits the whole verification gate for one unit.
	UnitBudget Duration `yaml:"unit_budget"`

	// PropertySamples is how many generated samples a forAll harness
	// draws per obligation.
	PropertySamples int `yaml:"property_samples"`
}

// Default returns the options used when no configuration file is
// supplied.
func Default() *Options {
	return &Options{
		Workers:          runtime.NumCPU(),
		Effects:          BuiltinEffects(),
		ObligationBudget: Duration(DefaultObligationBudgetMillis * time.Millisecond),
		UnitBudget:       Duration(DefaultUnitBudgetMillis * time.Millisecond),
		PropertySamples:  DefaultPropertySamples,
	}
}

// BuiltinEffects is the default effect registry. Parents permit but do
// not require their children.
func BuiltinEffects() []EffectSpec {
	return []EffectSpec{
		{Name: "io"},
		{Name: "network", Parent: "io"},
		{Name: "filesystem", Parent: "io"},
		{Name: "database", Parent: "io"},
		{Name: "process"},
		{Name: "time"},
		{Name: "random"},
	}
}

// Load reads options from a YAML file, filling unset fields from
// Default().
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML option data.
func Parse(data []byte) (*Options, error) {
	opts := &Options{}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	def := Default()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if len(opts.Effects) == 0 {
		opts.Effects = def.Effects
	}
	if opts.ObligationBudget <= 0 {
		opts.ObligationBudget = def.ObligationBudget
	}
	if opts.UnitBudget <= 0 {
		opts.UnitBudget = def.UnitBudget
	}
	if opts.PropertySamples <= 0 {
		opts.PropertySamples = def.PropertySamples
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) validate() error {
	seen := make(map[string]bool, len(o.Effects))
	for _, e := range o.Effects {
		if e.Name == "" {
			return fmt.Errorf("effect registry: empty effect name")
		}
		if seen[e.Name] {
			return fmt.Errorf("effect registry: duplicate effect %q", e.Name)
		}
		seen[e.Name] = true
	}
	for _, e := range o.Effects {
		if e.Parent == "" {
			continue
		}
		if !seen[e.Parent] {
			return fmt.Errorf("effect registry: effect %q names unknown parent %q", e.Name, e.Parent)
		}
		// Single-level hierarchy: a parent may not itself have a parent.
		for _, p := range o.Effects {
			if p.Name == e.Parent && p.Parent != "" {
				return fmt.Errorf("effect registry: effect %q nests under %q which is not a root effect", e.Name, e.Parent)
			}
		}
	}
	return nil
}
