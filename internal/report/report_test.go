package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return &Report{
		Recall:             0.9032,
		RecallNumerator:    28,
		RecallDenominator:  31,
		FalsePositiveCount: 0,
		Verdict:            VerdictPass,
		CeilingNotice: &CeilingNotice{
			ExtractedCount:    28,
			ReferenceCount:    31,
			MaxPossibleRecall: 0.9032,
		},
		PerTier: map[string]TierBreakdown{
			"ICON":  {References: 26, Matches: 25, Recall: 25.0 / 26.0},
			"MID":   {References: 4, Matches: 3, Recall: 0.75},
			"BOARD": {References: 1, Matches: 0, Recall: 0},
		},
		Matches: []Match{
			{RefID: "ref1", CandidateID: "cand1", CombinedScore: 0, Method: "phash"},
		},
		FalsePositives: []string{},
		Misses: []Miss{
			{RefID: "ref2", Tier: "ICON", Audit: Audit{Classification: "NO_TIER_MATCHES"}},
		},
	}
}

func TestWriteIsDeterministicAcrossRuns(t *testing.T) {
	rep := sampleReport()

	var first, second bytes.Buffer
	require.NoError(t, Write(&first, rep))
	require.NoError(t, Write(&second, rep))

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestWriteMapKeysAreSorted(t *testing.T) {
	rep := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rep))

	out := buf.String()
	// encoding/json sorts map keys, so per_tier must appear alphabetically:
	// BOARD, ICON, MID.
	boardIdx := indexOf(out, `"BOARD"`)
	iconIdx := indexOf(out, `"ICON"`)
	midIdx := indexOf(out, `"MID"`)
	require.True(t, boardIdx >= 0 && iconIdx >= 0 && midIdx >= 0)
	assert.Less(t, boardIdx, iconIdx)
	assert.Less(t, iconIdx, midIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
