package devproxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rulesFile represents the structure of the proxy rules file.
type rulesFile struct {
	Rules []RuleConfig `json:"rules" yaml:"rules"`
}

// RuleConfig is a single rule entry declared in the rules file.
type RuleConfig struct {
	ID           string `json:"id" yaml:"id"`
	Prefix       string `json:"prefix" yaml:"prefix"`
	Target       string `json:"target" yaml:"target"`
	ChangeOrigin *bool  `json:"change_origin" yaml:"change_origin"`
	Enabled      *bool  `json:"enabled" yaml:"enabled"`
}

// LoadRules reads enabled rules from a YAML/JSON file. Entries without a
// target use defaultTarget. An empty path yields the single default rule.
func LoadRules(path string, defaultTarget *url.URL) ([]Rule, error) {
	if defaultTarget == nil {
		return nil, errors.New("default target is required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return []Rule{DefaultRule(defaultTarget)}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxy rules file: %w", err)
	}

	file, err := parseRulesFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, rc := range file.Rules {
		if rc.Enabled != nil && !*rc.Enabled {
			continue
		}
		rule, err := rc.toRule(defaultTarget)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, errors.New("proxy rules file contains no enabled rules")
	}
	return rules, nil
}

func parseRulesFile(data []byte, ext string) (rulesFile, error) {
	var file rulesFile
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return rulesFile{}, fmt.Errorf("decode json proxy rules: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return rulesFile{}, fmt.Errorf("decode yaml proxy rules: %w", err)
		}
	default:
		return rulesFile{}, fmt.Errorf("proxy rules file format %q not recognized (expected YAML or JSON)", ext)
	}
	return file, nil
}

func (rc RuleConfig) toRule(defaultTarget *url.URL) (Rule, error) {
	prefix := strings.TrimSpace(rc.Prefix)
	if prefix == "" {
		return Rule{}, errors.New("prefix is required")
	}
	id := strings.TrimSpace(rc.ID)
	if id == "" {
		id = strings.Trim(prefix, "/")
	}

	target := defaultTarget
	if t := strings.TrimSpace(rc.Target); t != "" {
		u, err := parseTarget(t)
		if err != nil {
			return Rule{}, err
		}
		target = u
	}

	changeOrigin := true
	if rc.ChangeOrigin != nil {
		changeOrigin = *rc.ChangeOrigin
	}

	rule := Rule{
		ID:           id,
		PathPrefix:   prefix,
		Target:       target,
		ChangeOrigin: changeOrigin,
	}
	return rule, rule.validate()
}
