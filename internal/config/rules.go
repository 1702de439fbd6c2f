package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ThresholdRule is one metric threshold from the rules file
type ThresholdRule struct {
	Metric string  `yaml:"metric"`
	Value  float64 `yaml:"value"`
}

// Rules holds operator-tunable rule overrides loaded from YAML. Absent
// sections keep the built-in defaults.
type Rules struct {
	// Thresholds maps event type (api, database, frontend,
	// infrastructure) to its ordered threshold list.
	Thresholds map[string][]ThresholdRule `yaml:"thresholds"`

	// SLAHours maps urgency (P0..P3) to response SLA hours.
	SLAHours map[string]int `yaml:"sla_hours"`
}

// LoadRules parses the YAML rules file. An empty path yields empty
// rules (defaults everywhere).
func LoadRules(path string) (*Rules, error) {
	rules := &Rules{}
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for eventType, list := range rules.Thresholds {
		for _, rule := range list {
			if rule.Metric == "" || rule.Value <= 0 {
				return nil, fmt.Errorf("invalid threshold rule for %s: %+v", eventType, rule)
			}
		}
	}
	return rules, nil
}
