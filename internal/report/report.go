// Package report defines the evaluation report document (spec.md §6) and
// writes it out deterministically.
package report

import (
	"encoding/json"
	"io"
)

// Match is one resolved reference-to-candidate assignment.
type Match struct {
	RefID         string         `json:"ref_id"`
	CandidateID   string         `json:"candidate_id"`
	CombinedScore float64        `json:"combined_score"`
	Method        string         `json:"method"`
	PHashDist     int            `json:"phash_dist"`
	DHashDist     int            `json:"dhash_dist"`
	FeatureSim    float64        `json:"feature_sim"`
	FallbackSim   float64        `json:"fallback_sim"`
	ManifestExtra map[string]any `json:"manifest_extra,omitempty"`
}

// MissCandidate is one of an unmatched reference's top-five candidates.
type MissCandidate struct {
	Rank              int            `json:"rank"`
	CandidateID       string         `json:"candidate_id"`
	PHashDist         int            `json:"phash_dist"`
	DHashDist         int            `json:"dhash_dist"`
	FeatureSim        float64        `json:"feature_sim"`
	FallbackSim       float64        `json:"fallback_sim"`
	CombinedScore     float64        `json:"combined_score"`
	AdmissibleICON    bool           `json:"admissible_icon"`
	AdmissibleMID     bool           `json:"admissible_mid"`
	AdmissibleBOARD   bool           `json:"admissible_board"`
	HeldByRef         string         `json:"held_by_ref,omitempty"`
	ManifestExtra     map[string]any `json:"manifest_extra,omitempty"`
}

// Audit is the tier-audit classification for an unmatched reference.
type Audit struct {
	Classification string `json:"classification"`
	Recommendation string `json:"recommendation"`
}

// Miss is a full diagnostic record for one unmatched reference.
type Miss struct {
	RefID          string          `json:"ref_id"`
	Tier           string          `json:"tier"`
	TopCandidates  []MissCandidate `json:"top_candidates"`
	Audit          Audit           `json:"audit"`
}

// TierBreakdown summarizes recall within a single size tier.
type TierBreakdown struct {
	References int     `json:"references"`
	Matches    int     `json:"matches"`
	Recall     float64 `json:"recall"`
}

// CeilingNotice is present iff the candidate pool is smaller than the
// reference set.
type CeilingNotice struct {
	ExtractedCount    int     `json:"extracted_count"`
	ReferenceCount    int     `json:"reference_count"`
	MaxPossibleRecall float64 `json:"max_possible_recall"`
}

// Report is the complete evaluation output document (spec.md §6). It
// deliberately carries no run identifier or timestamp: spec.md §8
// property 1 requires byte-identical reports across repeated runs over
// the same inputs, so nothing that varies run-to-run may appear here.
type Report struct {
	Recall              float64                  `json:"recall"`
	RecallNumerator     int                      `json:"recall_numerator"`
	RecallDenominator   int                      `json:"recall_denominator"`
	FalsePositiveCount  int                      `json:"false_positive_count"`
	Verdict             string                   `json:"verdict"`
	CeilingNotice       *CeilingNotice           `json:"ceiling_notice,omitempty"`
	PerTier             map[string]TierBreakdown `json:"per_tier"`
	Matches             []Match                  `json:"matches"`
	FalsePositives      []string                 `json:"false_positives"`
	Misses              []Miss                   `json:"misses"`

	// InvariantViolations lists, in ref_id order, a human-readable
	// message for every miss whose tier audit classified as
	// UNEXPECTED_CURRENT_TIER_SHOULD_MATCH (spec.md §7): an admissible,
	// unassigned pair that the assignment solver should have matched.
	// Empty on every correct run; a non-empty list always forces
	// Verdict to FAIL regardless of the numeric metrics above.
	InvariantViolations []string `json:"invariant_violations,omitempty"`
}

const (
	VerdictPass = "PASS"
	VerdictFail = "FAIL"
)

// Write serializes the report as indented JSON. Field order follows the
// struct declaration and map keys are sorted by encoding/json, so two
// runs over identical inputs produce byte-identical output as required
// by spec.md's determinism property.
func Write(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
