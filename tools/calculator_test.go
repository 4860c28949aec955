package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExpr(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2", 3},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-5 + 3", -2},
		{"--4", 4},
		{"1.5 * 2", 3},
		{"((1 + 2) * (3 + 4))", 21},
		{"42", 42},
	}
	for _, tt := range tests {
		got, err := evalExpr(tt.expr)
		require.NoError(t, err, "expr %q", tt.expr)
		assert.Equal(t, tt.want, got, "expr %q", tt.expr)
	}
}

func TestEvalExprErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"1 +",
		"(1 + 2",
		"1 / 0",
		"abc",
		"1 2",
		"1 + $",
	} {
		_, err := evalExpr(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestCalculatorTool(t *testing.T) {
	tool := &calculatorTool{}

	data, err := tool.Execute(context.Background(), Args{"expression": "(12 + 8) * 3"})
	require.NoError(t, err)
	assert.Equal(t, 60.0, data["result"])
	assert.Equal(t, "(12 + 8) * 3", data["expression"])

	_, err = tool.Execute(context.Background(), Args{"expression": "7 / 0"})
	assert.Error(t, err)
}
