package condition

import (
	"strconv"
	"strings"
)

// Operator is the closed set of comparison operators supported by alert
// trigger conditions. The codes are part of the persisted wire contract.
type Operator string

const (
	OpEqual        Operator = "igual"
	OpGreater      Operator = "mayor"
	OpLess         Operator = "menor"
	OpGreaterEqual Operator = "mayor_igual"
	OpLessEqual    Operator = "menor_igual"
	OpBetween      Operator = "entre"
	OpContains     Operator = "contiene"
)

// Condition is a single declarative trigger condition evaluated against a
// snapshot of entity facts, e.g. {campo: "dias_hasta_vencimiento",
// operador: "menor_igual", valor: 7}.
type Condition struct {
	Field    string      `json:"campo"`
	Operator Operator    `json:"operador"`
	Value    interface{} `json:"valor"`
	ValueMax interface{} `json:"valor_maximo,omitempty"` // only for "entre"
}

// Evaluate ANDs all conditions against the facts map. An empty condition
// list passes. A missing fact or an unknown operator fails that condition
// (fail closed); Evaluate never panics and has no side effects.
func Evaluate(conditions []Condition, facts map[string]interface{}) bool {
	for _, c := range conditions {
		if !evaluateOne(c, facts) {
			return false
		}
	}
	return true
}

func evaluateOne(c Condition, facts map[string]interface{}) bool {
	raw, ok := facts[c.Field]
	if !ok || raw == nil {
		return false
	}

	switch c.Operator {
	case OpEqual:
		if fn, fok := toFloat(raw); fok {
			if vn, vok := toFloat(c.Value); vok {
				return fn == vn
			}
		}
		return strings.EqualFold(toString(raw), toString(c.Value))

	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		fn, fok := toFloat(raw)
		vn, vok := toFloat(c.Value)
		if !fok || !vok {
			return false
		}
		switch c.Operator {
		case OpGreater:
			return fn > vn
		case OpLess:
			return fn < vn
		case OpGreaterEqual:
			return fn >= vn
		default:
			return fn <= vn
		}

	case OpBetween:
		fn, fok := toFloat(raw)
		lo, lok := toFloat(c.Value)
		hi, hok := toFloat(c.ValueMax)
		if !fok || !lok || !hok {
			return false
		}
		// inclusive on both ends
		return fn >= lo && fn <= hi

	case OpContains:
		return strings.Contains(
			strings.ToLower(toString(raw)),
			strings.ToLower(toString(c.Value)),
		)
	}

	return false
}

// toFloat coerces the scalar types JSONB deserialization can produce.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}
