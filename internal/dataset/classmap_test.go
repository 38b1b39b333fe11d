package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassMap_LabelToClassTuple(t *testing.T) {
	m, err := ParseClassMap([]byte(`[["floor", "wall", "chair"], {"0": "floor", "1": "wall", "2": "chair"}]`))
	require.NoError(t, err)

	assert.Equal(t, KindLabelToClass, m.Kind)
	assert.Equal(t, []string{"floor", "wall", "chair"}, m.Classes)
	assert.Equal(t, 3, m.NumClasses())
	assert.Equal(t, "wall", m.ClassName(1))
	assert.Empty(t, m.ClassName(7))
	assert.Nil(t, m.ClassToColor)
}

func TestParseClassMap_ExtraTupleElementsIgnored(t *testing.T) {
	m, err := ParseClassMap([]byte(`[["a", "b"], {"0": "a", "1": "b"}, {"version": 2}, "notes"]`))
	require.NoError(t, err)
	assert.Equal(t, KindLabelToClass, m.Kind)
	assert.Equal(t, []string{"a", "b"}, m.Classes)
}

func TestParseClassMap_ColorTuple(t *testing.T) {
	m, err := ParseClassMap([]byte(`[["floor", "wall"], {"floor": [0, 255, 0], "wall": [0.5, 0.5, 0.5]}]`))
	require.NoError(t, err)

	assert.Equal(t, KindClassToColor, m.Kind)
	c, ok := m.Color("wall")
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, c)
	assert.Nil(t, m.LabelToClass)
}

func TestParseClassMap_ColorObjectKeepsFileOrder(t *testing.T) {
	m, err := ParseClassMap([]byte(`{"wall": [1, 1, 1], "floor": [0, 0, 0], "beam": [2, 2, 2]}`))
	require.NoError(t, err)

	assert.Equal(t, KindClassToColor, m.Kind)
	assert.Equal(t, []string{"wall", "floor", "beam"}, m.Classes)
	assert.Equal(t, "beam", m.ClassName(2))
	c, ok := m.Color("floor")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 0}, c)
}

func TestParseClassMap_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        `{{`,
		"scalar":          `42`,
		"short tuple":     `[["a"]]`,
		"labels not list": `[{"a": 1}, {"0": "a"}]`,
		"mapping is list": `[["a"], ["a"]]`,
		"mixed mapping":   `[["a", "b"], {"0": "a", "b": [1, 2, 3]}]`,
		"bad label key":   `[["a"], {"zero": "a"}]`,
		"bad color":       `{"a": "red"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClassMap([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidClassMap)
		})
	}
}
