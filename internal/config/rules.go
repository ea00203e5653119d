package config

import (
	"fmt"
	"os"

	"ensemble/internal/core"

	"gopkg.in/yaml.v3"
)

// rulesFile is the YAML layout of RULES_FILE. Pointers distinguish an
// omitted key from an explicit zero.
type rulesFile struct {
	Weights struct {
		FixedExcuse   *int `yaml:"fixed_excuse"`
		GeneralExcuse *int `yaml:"general_excuse"`
		Absence       *int `yaml:"absence"`
		LatePair      *int `yaml:"late_pair"`
	} `yaml:"weights"`
	Fines struct {
		Absence *int `yaml:"absence"`
		Audio   *int `yaml:"audio"`
	} `yaml:"fines"`
	RequirementScope string `yaml:"requirement_scope"`
}

// LoadRules returns the default rules overridden by the YAML file at path.
// An empty path yields the defaults.
func LoadRules(path string) (core.Rules, error) {
	rules := core.DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules applies a YAML document on top of the default rules.
func ParseRules(data []byte) (core.Rules, error) {
	rules := core.DefaultRules()
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}

	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&rules.FixedExcuseWeight, f.Weights.FixedExcuse)
	set(&rules.GeneralExcuseWeight, f.Weights.GeneralExcuse)
	set(&rules.AbsenceWeight, f.Weights.Absence)
	set(&rules.LatePairWeight, f.Weights.LatePair)
	set(&rules.AbsenceFineRate, f.Fines.Absence)
	set(&rules.AudioFineRate, f.Fines.Audio)
	if f.RequirementScope != "" {
		rules.Scope = core.RequirementScope(f.RequirementScope)
	}

	if err := rules.Validate(); err != nil {
		return rules, err
	}
	return rules, nil
}
