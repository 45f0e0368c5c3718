package riskmap

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Criticality classifies how important a component is to the business.
type Criticality string

const (
	CriticalityCritical Criticality = "critical"
	CriticalityHigh     Criticality = "high"
	CriticalityMedium   Criticality = "medium"
	CriticalityLow      Criticality = "low"
)

// ParseCriticality is lenient on case, strict on vocabulary.
func ParseCriticality(s string) (Criticality, error) {
	switch Criticality(strings.ToLower(strings.TrimSpace(s))) {
	case CriticalityCritical:
		return CriticalityCritical, nil
	case CriticalityHigh:
		return CriticalityHigh, nil
	case CriticalityMedium:
		return CriticalityMedium, nil
	case CriticalityLow:
		return CriticalityLow, nil
	}
	return "", fmt.Errorf("unknown criticality %q", s)
}

func (c *Criticality) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseCriticality(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c *Criticality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCriticality(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Priority ranks a risk from P1 (most urgent) to P4.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityP1:
		return PriorityP1, nil
	case PriorityP2:
		return PriorityP2, nil
	case PriorityP3:
		return PriorityP3, nil
	case PriorityP4:
		return PriorityP4, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

func (p *Priority) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Risk is a prioritized concern. Scope restricts which files the risk,
// and by extension its owning ConfigEntry, applies to.
type Risk struct {
	ID          string   `yaml:"id,omitempty" json:"id,omitempty"`
	Title       string   `yaml:"title" json:"title"`
	Priority    Priority `yaml:"priority" json:"priority"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Mitigation  string   `yaml:"mitigation,omitempty" json:"mitigation,omitempty"`
	Severity    string   `yaml:"severity,omitempty" json:"severity,omitempty"`
	Scope       []string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// Requirement is a named quality threshold, e.g. test coverage.
type Requirement struct {
	Name      string  `yaml:"name" json:"name"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// ConfigEntry is the resolved project-context record for a workspace.
// It is immutable once constructed; a reload produces a wholesale
// replacement, never an in-place mutation.
type ConfigEntry struct {
	Identifier   string        `yaml:"identifier" json:"identifier"`
	Criticality  Criticality   `yaml:"criticality" json:"criticality"`
	Owner        string        `yaml:"owner,omitempty" json:"owner,omitempty"`
	Risks        []Risk        `yaml:"risks,omitempty" json:"risks,omitempty"`
	Requirements []Requirement `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	DesignDocs   []string      `yaml:"design_docs,omitempty" json:"design_docs,omitempty"`

	// Provenance, set by the source that produced the entry.
	SourcePath string    `yaml:"-" json:"-"`
	LoadedAt   time.Time `yaml:"-" json:"-"`
}

// Workspace identifies a root directory a ConfigEntry is anchored to.
type Workspace struct {
	ID   string // normalized absolute root path
	Root string
}
