package units

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either a bare number (dimensionless) or a string
// such as "50 nmi".
func (q *Quantity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: quantity must be a scalar", node.Line)
	}
	parsed, err := Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*q = parsed
	return nil
}

// MarshalYAML writes the quantity back in "<magnitude> <unit>" form.
func (q Quantity) MarshalYAML() (any, error) {
	if q.Unit.Symbol == "" {
		return q.Magnitude, nil
	}
	return q.String(), nil
}
