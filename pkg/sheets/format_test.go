package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusColors(t *testing.T) {
	rules, err := StatusColors([]string{"to do", "in progress", "review", "waiting", "qa", "blocked"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []StatusColor{
		{Status: "complete", Color: Green},
		{Status: "to do", Color: Cyan},
		{Status: "in progress", Color: Purple},
		{Status: "review", Color: Yellow},
		{Status: "waiting", Color: Cyan},
		{Status: "qa", Color: CornBlue},
		{Status: "blocked", Color: Red},
	}, rules)
}

func TestStatusColorsOverrides(t *testing.T) {
	rules, err := StatusColors([]string{"open", "complete", "stuck"}, map[string]string{"open": "#000000"})
	require.NoError(t, err)

	assert.Equal(t, []StatusColor{
		{Status: "open", Color: Color{}},
		{Status: "complete", Color: Green},
		{Status: "stuck", Color: Red},
	}, rules)
}

func TestStatusColorsSingleStatus(t *testing.T) {
	rules, err := StatusColors([]string{"open"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Cyan, rules[1].Color)
}

func TestStatusColorsErrors(t *testing.T) {
	_, err := StatusColors([]string{"open"}, map[string]string{"open": "blue"})
	assert.Error(t, err)

	_, err = StatusColors([]string{"open"}, map[string]string{"closed": "#ffffff"})
	assert.ErrorContains(t, err, "unknown status")
}

func TestCellColor(t *testing.T) {
	tests := []struct {
		value string
		want  Color
	}{
		{"Incomplete", LightRed},
		{" n/a ", LightBlue},
		{"0", LightBlue},
		{"Done - footer updated", Green},
		{"12", Green},
		{"pending", Yellow},
		{"", Yellow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CellColor(tt.value), "CellColor(%q)", tt.value)
	}
}
