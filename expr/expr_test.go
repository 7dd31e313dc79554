package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitNormalization(t *testing.T) {
	ctx := &Context{Fragments: map[string]FieldTime{}}

	cases := []struct {
		expr string
		want int64
	}{
		{"calc(3s)", 3000},
		{"calc(1500ms)", 1500},
		{"calc(0s)", 0},
		{"calc(2.5s)", 2500},
	}
	for _, c := range cases {
		compiled, err := Parse(c.expr)
		require.NoError(t, err)
		got, err := Evaluate(compiled, ctx)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.expr)
	}
}

func TestExpressionRoundTrip(t *testing.T) {
	ctx := &Context{Fragments: map[string]FieldTime{
		"x": {StartMs: 100, EndMs: 300, DurationMs: 200},
		"y": {StartMs: 50, EndMs: 150, DurationMs: 100},
	}}

	left, err := Parse("calc((url(#x.time.duration) + url(#y.time.duration)) * 2)")
	require.NoError(t, err)
	leftVal, err := Evaluate(left, ctx)
	require.NoError(t, err)

	x, err := Parse("calc(url(#x.time.duration))")
	require.NoError(t, err)
	xVal, err := Evaluate(x, ctx)
	require.NoError(t, err)

	y, err := Parse("calc(url(#y.time.duration))")
	require.NoError(t, err)
	yVal, err := Evaluate(y, ctx)
	require.NoError(t, err)

	assert.Equal(t, 2*(xVal+yVal), leftVal)
}

func TestForwardReference(t *testing.T) {
	ctx := &Context{Fragments: map[string]FieldTime{
		"ending": {StartMs: 8000, EndMs: 9000, DurationMs: 1000},
	}}
	compiled, err := Parse("calc(url(#ending.time.start))")
	require.NoError(t, err)
	got, err := Evaluate(compiled, ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), got)
}

func TestUnknownFragmentID(t *testing.T) {
	compiled, err := Parse("calc(url(#missing.time.start))")
	require.NoError(t, err)
	_, err = Evaluate(compiled, &Context{Fragments: map[string]FieldTime{}})
	assert.Error(t, err)
}

func TestUnknownPropertyPath(t *testing.T) {
	ctx := &Context{Fragments: map[string]FieldTime{"x": {}}}
	compiled, err := Parse("calc(url(#x.time.bogus))")
	require.NoError(t, err)
	_, err = Evaluate(compiled, ctx)
	assert.Error(t, err)
}

func TestDivisionByZero(t *testing.T) {
	compiled, err := Parse("calc(1000 / 0)")
	require.NoError(t, err)
	_, err = Evaluate(compiled, &Context{Fragments: map[string]FieldTime{}})
	assert.Error(t, err)
}

func TestMalformedExpression(t *testing.T) {
	_, err := Parse("calc(1 + )")
	assert.Error(t, err)
}

func TestParseLiteralOrExpr(t *testing.T) {
	ms, pct, compiled, err := ParseLiteralOrExpr("1500")
	require.NoError(t, err)
	assert.False(t, pct)
	assert.Nil(t, compiled)
	assert.Equal(t, int64(1500), ms)

	_, pct, _, err = ParseLiteralOrExpr("100%")
	require.NoError(t, err)
	assert.True(t, pct)

	_, _, compiled, err = ParseLiteralOrExpr("calc(url(#a.time.start) + 1s)")
	require.NoError(t, err)
	assert.NotNil(t, compiled)
}
