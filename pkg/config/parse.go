package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed default_study.yaml
var defaultStudyYAML []byte

// ParseStudyYAML parses a Study from YAML bytes and validates it.
func ParseStudyYAML(data []byte) (*Study, error) {
	var study Study
	if err := yaml.Unmarshal(data, &study); err != nil {
		return nil, fmt.Errorf("failed to parse study yaml: %w", err)
	}

	if err := validateStudy(&study); err != nil {
		return nil, fmt.Errorf("invalid study: %w", err)
	}

	return &study, nil
}

// ParseStudyYAMLString parses a Study from a YAML string and validates it.
func ParseStudyYAMLString(yamlText string) (*Study, error) {
	return ParseStudyYAML([]byte(yamlText))
}

// DefaultStudy returns the built-in reserve-requirement study tables.
// Each call returns an independent copy.
func DefaultStudy() (*Study, error) {
	return ParseStudyYAML(defaultStudyYAML)
}

// DefaultStudyYAML returns the raw built-in study document.
func DefaultStudyYAML() []byte {
	out := make([]byte, len(defaultStudyYAML))
	copy(out, defaultStudyYAML)
	return out
}

// MarshalStudyYAML converts a Study back to YAML.
func MarshalStudyYAML(study *Study) (string, error) {
	data, err := yaml.Marshal(study)
	if err != nil {
		return "", fmt.Errorf("failed to marshal study yaml: %w", err)
	}
	return string(data), nil
}
