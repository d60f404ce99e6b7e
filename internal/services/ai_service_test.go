package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskDrafts(t *testing.T) {
	drafts, err := parseTaskDrafts(`[
		{"title": "Buy groceries", "description": "Milk and eggs", "due_date": "2026-04-28T23:59:59Z", "difficulty": 2},
		{"title": "File taxes", "description": "", "due_date": null}
	]`)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, "Buy groceries", drafts[0].Title)
	assert.Equal(t, 2, drafts[0].Difficulty)
	require.NotNil(t, drafts[0].DueDate)
	assert.Equal(t, time.Date(2026, 4, 28, 23, 59, 59, 0, time.UTC), drafts[0].DueDate.UTC())

	// Missing difficulty falls back to the default.
	assert.Equal(t, 3, drafts[1].Difficulty)
	assert.Nil(t, drafts[1].DueDate)
}

func TestParseTaskDraftsStripsCodeFence(t *testing.T) {
	drafts, err := parseTaskDrafts("```json\n[{\"title\": \"Water plants\"}]\n```")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Water plants", drafts[0].Title)
}

func TestParseTaskDraftsClampsDifficulty(t *testing.T) {
	drafts, err := parseTaskDrafts(`[
		{"title": "A", "difficulty": 9},
		{"title": "B", "difficulty": -1}
	]`)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, 5, drafts[0].Difficulty)
	assert.Equal(t, 1, drafts[1].Difficulty)
}

func TestParseTaskDraftsEmptyArray(t *testing.T) {
	drafts, err := parseTaskDrafts("[]")
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestParseTaskDraftsRejectsProse(t *testing.T) {
	_, err := parseTaskDrafts("Sure! Here are your tasks: ...")
	require.Error(t, err)
}

func TestDraftTasksWithoutKeyIsDisabled(t *testing.T) {
	service := NewAIService("")

	_, err := service.DraftTasks(context.Background(), "mow the lawn tomorrow")
	require.ErrorIs(t, err, ErrAIDraftingDisabled)
}
