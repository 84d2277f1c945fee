package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
)

func TestCanTransition_AllDistinctPairsAllowed(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, from != to, CanTransition(from, to))
			})
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
	}{
		{"unknown target", StatusTodo, Status("Archived")},
		{"unknown source", Status("Blocked"), StatusDone},
		{"empty target", StatusBacklog, Status("")},
		{"lowercase is not stored form", StatusBacklog, Status("done")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateTransition(t *testing.T) {
	t.Run("legal", func(t *testing.T) {
		assert.NoError(t, ValidateTransition(StatusBacklog, StatusInProgress))
		assert.NoError(t, ValidateTransition(StatusDone, StatusBacklog))
	})

	t.Run("unknown target", func(t *testing.T) {
		err := ValidateTransition(StatusTodo, Status("Archived"))
		require.Error(t, err)

		var ce *clierr.Error
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, clierr.InvalidTransition, ce.Code)
		assert.Equal(t, "unknown target status", ce.Details["reason"])
		assert.Equal(t, "Archived", ce.Details["to"])
	})

	t.Run("same status", func(t *testing.T) {
		err := ValidateTransition(StatusDone, StatusDone)
		require.Error(t, err)
		assert.True(t, clierr.HasCode(err, clierr.InvalidTransition))
		assert.Contains(t, err.Error(), "same status")
	})
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"Backlog", StatusBacklog, true},
		{"todo", StatusTodo, true},
		{"To Do", StatusTodo, true},
		{"in-progress", StatusInProgress, true},
		{" Doing ", StatusInProgress, true},
		{"DONE", StatusDone, true},
		{"archived", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_NextPrev(t *testing.T) {
	next, ok := StatusBacklog.Next()
	assert.True(t, ok)
	assert.Equal(t, StatusTodo, next)

	_, ok = StatusDone.Next()
	assert.False(t, ok)

	prev, ok := StatusDone.Prev()
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, prev)

	_, ok = StatusBacklog.Prev()
	assert.False(t, ok)

	assert.Equal(t, "in-progress", StatusInProgress.Key())
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("HIGH")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)

	assert.Equal(t, 1, PriorityMedium.Rank())
	assert.Equal(t, -1, Priority("x").Rank())
}
