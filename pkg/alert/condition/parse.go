package condition

import (
	"encoding/json"
	"fmt"
)

// ValidOperator reports whether op is one of the supported codes.
func ValidOperator(op Operator) bool {
	switch op {
	case OpEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpBetween, OpContains:
		return true
	}
	return false
}

// Parse decodes and validates a condiciones JSONB payload. nil or empty
// input is a valid empty condition list (the type always triggers).
func Parse(raw []byte) ([]Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var conditions []Condition
	if err := json.Unmarshal(raw, &conditions); err != nil {
		return nil, fmt.Errorf("condiciones inválidas: %w", err)
	}
	for i, c := range conditions {
		if c.Field == "" {
			return nil, fmt.Errorf("condición %d: campo vacío", i)
		}
		if !ValidOperator(c.Operator) {
			return nil, fmt.Errorf("condición %d: operador desconocido %q", i, c.Operator)
		}
		if c.Operator == OpBetween && c.ValueMax == nil {
			return nil, fmt.Errorf("condición %d: entre requiere valor_maximo", i)
		}
	}
	return conditions, nil
}
