package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestParseInput(t *testing.T) {
	now := time.Date(2026, time.March, 30, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"2026-04-02", "2026-04-02"},
		{"today", "2026-03-30"},
		{"Tomorrow", "2026-03-31"},
		{"+3d", "2026-04-02"},
		{"+2w", "2026-04-13"},
		{"+0d", "2026-03-30"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInput(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseInput_Invalid(t *testing.T) {
	now := time.Now()
	for _, in := range []string{"", "yesterday", "+xd", "+3m", "-3d", "2026/04/02"} {
		_, err := ParseInput(in, now)
		assert.Error(t, err, in)
	}
}

func TestOverdue(t *testing.T) {
	now := time.Date(2026, time.March, 30, 23, 0, 0, 0, time.UTC)
	assert.True(t, New(2026, time.March, 29).Overdue(now))
	assert.False(t, New(2026, time.March, 30).Overdue(now))
	assert.False(t, New(2026, time.March, 31).Overdue(now))
}

func TestDate_YAMLAndJSON(t *testing.T) {
	type holder struct {
		Due Date `yaml:"due" json:"due"`
	}
	h := holder{Due: New(2026, time.May, 1)}

	out, err := yaml.Marshal(h)
	require.NoError(t, err)
	assert.Contains(t, string(out), "2026-05-01")

	var back holder
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, h.Due.String(), back.Due.String())

	js, err := h.Due.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-05-01"`, string(js))
}
