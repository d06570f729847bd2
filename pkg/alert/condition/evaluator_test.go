package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateEmptyListPasses(t *testing.T) {
	assert.True(t, Evaluate(nil, map[string]interface{}{"x": 1}))
	assert.True(t, Evaluate([]Condition{}, nil))
}

func TestEvaluateNumericOperators(t *testing.T) {
	facts := map[string]interface{}{"dias_hasta_vencimiento": float64(7)}

	cases := []struct {
		op       Operator
		value    interface{}
		expected bool
	}{
		{OpEqual, 7, true},
		{OpEqual, 8, false},
		{OpGreater, 5, true},
		{OpGreater, 7, false},
		{OpLess, 10, true},
		{OpLess, 7, false},
		{OpGreaterEqual, 7, true},
		{OpLessEqual, 7, true},
		{OpLessEqual, 6, false},
	}

	for _, c := range cases {
		got := Evaluate([]Condition{{Field: "dias_hasta_vencimiento", Operator: c.op, Value: c.value}}, facts)
		assert.Equal(t, c.expected, got, "operator %s value %v", c.op, c.value)
	}
}

func TestEvaluateBetweenInclusive(t *testing.T) {
	facts := map[string]interface{}{"monto_pendiente": 150.0}

	assert.True(t, Evaluate([]Condition{{Field: "monto_pendiente", Operator: OpBetween, Value: 100, ValueMax: 200}}, facts))
	assert.True(t, Evaluate([]Condition{{Field: "monto_pendiente", Operator: OpBetween, Value: 150, ValueMax: 150}}, facts))
	assert.False(t, Evaluate([]Condition{{Field: "monto_pendiente", Operator: OpBetween, Value: 151, ValueMax: 200}}, facts))
	// missing bound fails closed
	assert.False(t, Evaluate([]Condition{{Field: "monto_pendiente", Operator: OpBetween, Value: 100}}, facts))
}

func TestEvaluateContainsCaseInsensitive(t *testing.T) {
	facts := map[string]interface{}{"nombre": "Relámpago Negro"}

	assert.True(t, Evaluate([]Condition{{Field: "nombre", Operator: OpContains, Value: "relámpago"}}, facts))
	assert.True(t, Evaluate([]Condition{{Field: "nombre", Operator: OpContains, Value: "NEGRO"}}, facts))
	assert.False(t, Evaluate([]Condition{{Field: "nombre", Operator: OpContains, Value: "blanco"}}, facts))
}

func TestEvaluateMissingFactFailsClosed(t *testing.T) {
	conds := []Condition{{Field: "no_existe", Operator: OpEqual, Value: 1}}

	assert.False(t, Evaluate(conds, map[string]interface{}{"otro": 1}))
	assert.False(t, Evaluate(conds, nil))
	assert.False(t, Evaluate([]Condition{{Field: "x", Operator: OpEqual, Value: 1}}, map[string]interface{}{"x": nil}))
}

func TestEvaluateIsTotal(t *testing.T) {
	// junk operators, junk values and junk fact types must never panic
	weird := []Condition{
		{Field: "a", Operator: "no_es_operador", Value: 1},
		{Field: "b", Operator: OpGreater, Value: "abc"},
		{Field: "c", Operator: OpBetween, Value: struct{}{}, ValueMax: []int{1}},
	}
	facts := map[string]interface{}{
		"a": []string{"x"},
		"b": map[string]interface{}{"nested": true},
		"c": 3,
	}

	assert.NotPanics(t, func() {
		_ = Evaluate(weird, facts)
	})
	assert.False(t, Evaluate(weird, facts))
}

func TestEvaluateANDsAllConditions(t *testing.T) {
	facts := map[string]interface{}{
		"dias_hasta_vencimiento": 3,
		"estado":                 "pendiente",
	}
	conds := []Condition{
		{Field: "dias_hasta_vencimiento", Operator: OpLessEqual, Value: 7},
		{Field: "estado", Operator: OpEqual, Value: "pendiente"},
	}
	assert.True(t, Evaluate(conds, facts))

	conds[1].Value = "pagado"
	assert.False(t, Evaluate(conds, facts))
}

func TestEvaluateStringNumericCoercion(t *testing.T) {
	facts := map[string]interface{}{"monto": "150.5"}
	assert.True(t, Evaluate([]Condition{{Field: "monto", Operator: OpGreater, Value: 100}}, facts))
}
