package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/modelcheck/internal/validate"
)

// DependencyCheck asks whether Determinant functionally determines
// Dependent within Table.
type DependencyCheck struct {
	Table           string `yaml:"table"`
	Determinant     string `yaml:"determinant"`
	Dependent       string `yaml:"dependent"`
	NullDeterminant string `yaml:"null_determinant,omitempty"`
}

// RelationshipCheck is a parent/child pair written as Table.Column references.
type RelationshipCheck struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

type Config struct {
	Source                string              `yaml:"source"`
	Schema                string              `yaml:"schema"`
	NullDeterminant       string              `yaml:"null_determinant"`
	Parallelism           int                 `yaml:"parallelism"`
	DiscoverRelationships bool                `yaml:"discover_relationships"`
	Dependencies          []DependencyCheck   `yaml:"dependencies"`
	RelationshipChecks    []RelationshipCheck `yaml:"relationships"`
}

// Load reads and validates a check configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration. Environment variables in
// source are expanded.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = os.ExpandEnv(cfg.Source)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseNullPolicy(c.NullDeterminant); err != nil {
		errs = append(errs, err)
	}
	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism))
	}
	if len(c.Dependencies) == 0 && len(c.RelationshipChecks) == 0 && !c.DiscoverRelationships {
		errs = append(errs, errors.New("no checks configured: add dependencies, relationships or discover_relationships"))
	}

	for i, d := range c.Dependencies {
		if d.Table == "" || d.Determinant == "" || d.Dependent == "" {
			errs = append(errs, fmt.Errorf("dependencies[%d]: table, determinant and dependent are required", i))
		}
		if _, err := ParseNullPolicy(d.NullDeterminant); err != nil {
			errs = append(errs, fmt.Errorf("dependencies[%d]: %w", i, err))
		}
	}
	for i, r := range c.RelationshipChecks {
		if _, err := r.Relationship(); err != nil {
			errs = append(errs, fmt.Errorf("relationships[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// Relationship parses the check into a validator relationship.
func (r RelationshipCheck) Relationship() (validate.Relationship, error) {
	pt, pc, err := validate.ParseColumnRef(r.Parent)
	if err != nil {
		return validate.Relationship{}, fmt.Errorf("parent: %w", err)
	}
	ct, cc, err := validate.ParseColumnRef(r.Child)
	if err != nil {
		return validate.Relationship{}, fmt.Errorf("child: %w", err)
	}
	return validate.Relationship{ParentTable: pt, ParentColumn: pc, ChildTable: ct, ChildColumn: cc}, nil
}

// Relationships returns the declared relationships in file order. The
// config must have passed Validate.
func (c *Config) Relationships() []validate.Relationship {
	rels := make([]validate.Relationship, 0, len(c.RelationshipChecks))
	for _, r := range c.RelationshipChecks {
		rel, err := r.Relationship()
		if err != nil {
			continue
		}
		rels = append(rels, rel)
	}
	return rels
}

// DependencyOptions resolves the null policy for one dependency check,
// falling back to the config-wide setting.
func (c *Config) DependencyOptions(d DependencyCheck) validate.DependencyOptions {
	policy, _ := ParseNullPolicy(c.NullDeterminant)
	if d.NullDeterminant != "" {
		policy, _ = ParseNullPolicy(d.NullDeterminant)
	}
	return validate.DependencyOptions{NullDeterminant: policy}
}

// ParseNullPolicy maps "group" (or empty) and "skip" to a null policy.
func ParseNullPolicy(s string) (validate.NullPolicy, error) {
	switch s {
	case "", "group":
		return validate.NullAsGroup, nil
	case "skip":
		return validate.SkipNull, nil
	default:
		return validate.NullAsGroup, fmt.Errorf("invalid null_determinant %q (want group or skip)", s)
	}
}
