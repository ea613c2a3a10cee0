package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobiusrecall/internal/evalerr"
	"mobiusrecall/internal/features"
	"mobiusrecall/internal/report"
	"mobiusrecall/internal/scoring"
	"mobiusrecall/internal/tier"
)

func makeRefs(tiers ...tier.Tier) []refEntry {
	refs := make([]refEntry, len(tiers))
	for i, tr := range tiers {
		refs[i] = refEntry{id: string(rune('A'+i)) + "-ref", tr: tr, sig: features.Signature{}}
	}
	return refs
}

func makeCands(n int) []candEntry {
	cands := make([]candEntry, n)
	for i := range cands {
		cands[i] = candEntry{id: string(rune('a'+i)) + "-cand"}
	}
	return cands
}

func TestBuildMissNoTierMatches(t *testing.T) {
	refs := makeRefs(tier.BOARD)
	cands := makeCands(1)
	scores := []scoring.Score{{RefID: refs[0].id, CandidateID: cands[0].id, PHashDist: 60, DHashDist: 60, FeatureSim: 0, FallbackSim: 0, Combined: 40}}
	candHolder := []int{-1}

	miss := buildMiss(refs[0], 0, refs, cands, scores, candHolder, tier.Default())

	assert.Equal(t, classNoTierMatches, miss.Audit.Classification)
	require.Len(t, miss.TopCandidates, 1)
	assert.False(t, miss.TopCandidates[0].AdmissibleICON)
	assert.False(t, miss.TopCandidates[0].AdmissibleMID)
	assert.False(t, miss.TopCandidates[0].AdmissibleBOARD)
}

func TestBuildMissNoCandidatesAtAll(t *testing.T) {
	refs := makeRefs(tier.ICON)
	miss := buildMiss(refs[0], 0, refs, nil, nil, nil, tier.Default())
	assert.Equal(t, classNoTierMatches, miss.Audit.Classification)
	assert.Empty(t, miss.TopCandidates)
}

func TestBuildMissWrongTier(t *testing.T) {
	// R is tiered BOARD, but its top candidate only clears ICON's loose
	// phash cap (16), not BOARD's strict one (10).
	refs := makeRefs(tier.BOARD)
	cands := makeCands(1)
	scores := []scoring.Score{{RefID: refs[0].id, CandidateID: cands[0].id, PHashDist: 14, DHashDist: 60, FeatureSim: 0, FallbackSim: 0, Combined: 20}}
	candHolder := []int{-1}

	miss := buildMiss(refs[0], 0, refs, cands, scores, candHolder, tier.Default())

	assert.Equal(t, classWrongTier, miss.Audit.Classification)
	require.Len(t, miss.TopCandidates, 1)
	assert.True(t, miss.TopCandidates[0].AdmissibleICON)
	assert.False(t, miss.TopCandidates[0].AdmissibleBOARD)
}

func TestBuildMissAssignmentCompetitionSetsHeldByRef(t *testing.T) {
	refs := makeRefs(tier.MID, tier.MID)
	cands := makeCands(1)
	// R0 (index 0) is unmatched; its top candidate is admissible under
	// MID and is currently held by R1 (index 1).
	scores := []scoring.Score{{RefID: refs[0].id, CandidateID: cands[0].id, PHashDist: 2, DHashDist: 2, FeatureSim: 0, FallbackSim: 0, Combined: 5}}
	candHolder := []int{1}

	miss := buildMiss(refs[0], 0, refs, cands, scores, candHolder, tier.Default())

	assert.Equal(t, classAssignmentCompetition, miss.Audit.Classification)
	require.Len(t, miss.TopCandidates, 1)
	assert.Equal(t, refs[1].id, miss.TopCandidates[0].HeldByRef)
}

func TestBuildMissUnexpectedShouldMatchInvariantViolation(t *testing.T) {
	refs := makeRefs(tier.MID)
	cands := makeCands(1)
	scores := []scoring.Score{{RefID: refs[0].id, CandidateID: cands[0].id, PHashDist: 1, DHashDist: 1, FeatureSim: 0, FallbackSim: 0, Combined: 2}}
	candHolder := []int{-1} // admissible under own tier, yet unassigned: a bug

	miss := buildMiss(refs[0], 0, refs, cands, scores, candHolder, tier.Default())

	assert.Equal(t, classUnexpectedShouldMatch, miss.Audit.Classification)
}

func TestCollectInvariantViolationsWiresEvalerr(t *testing.T) {
	misses := []report.Miss{
		{RefID: "a-ref", Audit: report.Audit{Classification: classNoTierMatches}},
		{RefID: "b-ref", Audit: report.Audit{Classification: classUnexpectedShouldMatch}},
	}

	violations := collectInvariantViolations(misses)

	require.Len(t, violations, 1)
	want := evalerr.InvariantViolation("b-ref", "assignment solver left an admissible, unassigned pair unmatched").Error()
	assert.Equal(t, want, violations[0])
}

func TestCollectInvariantViolationsEmptyOnCorrectRun(t *testing.T) {
	misses := []report.Miss{
		{RefID: "a-ref", Audit: report.Audit{Classification: classNoTierMatches}},
		{RefID: "b-ref", Audit: report.Audit{Classification: classWrongTier}},
	}

	violations := collectInvariantViolations(misses)

	assert.Empty(t, violations)
	assert.NotNil(t, violations)
}

func TestBuildMissTopFiveOrderedByAscendingScore(t *testing.T) {
	refs := makeRefs(tier.ICON)
	cands := makeCands(7)
	scores := make([]scoring.Score, 7)
	for i := range scores {
		scores[i] = scoring.Score{RefID: refs[0].id, CandidateID: cands[i].id, Combined: float64(7 - i)}
	}
	candHolder := make([]int, 7)
	for i := range candHolder {
		candHolder[i] = -1
	}

	miss := buildMiss(refs[0], 0, refs, cands, scores, candHolder, tier.Default())

	require.Len(t, miss.TopCandidates, missTopN)
	for i := 1; i < len(miss.TopCandidates); i++ {
		assert.LessOrEqual(t, miss.TopCandidates[i-1].CombinedScore, miss.TopCandidates[i].CombinedScore)
	}
	assert.Equal(t, cands[6].id, miss.TopCandidates[0].CandidateID) // score 1, the smallest
}
