package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/types"
)

func TestDedupeEntriesStandardMostFrequentWins(t *testing.T) {
	got := DedupeEntries(types.TMStandard, []types.EntryInput{
		{Source: "시작", Target: "Begin"},
		{Source: "시작", Target: "Start"},
		{Source: "시작", Target: "Start"},
		{Source: "취소", Target: "Cancel"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, types.EntryInput{Source: "시작", Target: "Start"}, got[0])
	assert.Equal(t, types.EntryInput{Source: "취소", Target: "Cancel"}, got[1])
}

func TestDedupeEntriesStandardFirstSeenBreaksTies(t *testing.T) {
	got := DedupeEntries(types.TMStandard, []types.EntryInput{
		{Source: "저장", Target: "Save"},
		{Source: "저장", Target: "Store"},
		{Source: "저장", Target: "Store"},
		{Source: "저장", Target: "Save"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "Save", got[0].Target)
}

func TestDedupeEntriesStandardNormalizesWhitespace(t *testing.T) {
	got := DedupeEntries(types.TMStandard, []types.EntryInput{
		{Source: "게임  시작", Target: "Start game"},
		{Source: " 게임 시작 ", Target: "Start game"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "게임 시작", got[0].Source)
}

func TestDedupeEntriesStringIDKeepsDistinctPairs(t *testing.T) {
	got := DedupeEntries(types.TMStringID, []types.EntryInput{
		{Source: "확인", Target: "OK", StringID: "BTN_OK"},
		{Source: "확인", Target: "Confirm", StringID: "DLG_CONFIRM"},
		{Source: "확인", Target: "OK", StringID: "BTN_OK"},
		{Source: "확인 ", Target: "OK", StringID: "BTN_OK"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "BTN_OK", got[0].StringID)
	assert.Equal(t, "OK", got[0].Target)
	assert.Equal(t, "DLG_CONFIRM", got[1].StringID)
}

func TestDedupeEntriesEmptyBatch(t *testing.T) {
	assert.Empty(t, DedupeEntries(types.TMStandard, nil))
	assert.Empty(t, DedupeEntries(types.TMStringID, nil))
}
