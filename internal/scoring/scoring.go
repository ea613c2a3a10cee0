// Package scoring computes, for a (reference, candidate) pair, the four
// signal distances/similarities and the combined score spec.md §4.4
// defines, plus tier-gated admissibility per spec.md §4.3.
package scoring

import (
	"mobiusrecall/internal/features"
	"mobiusrecall/internal/tier"
)

// Score is the full score record for one (reference, candidate) pair.
type Score struct {
	RefID       string
	CandidateID string
	PHashDist   int
	DHashDist   int
	FeatureSim  float64
	FallbackSim float64
	Combined    float64
}

// featureFloor is the minimum feature similarity below which the
// combined-score formula falls back to the fallback signature, per
// spec.md §4.4's effective_feature_sim rule. It is distinct from (and
// always looser than) any tier's admissibility feature_min.
const featureFloor = 0.05

// Compute derives the score for one (reference, candidate) pair from
// their precomputed signatures.
func Compute(refID, candidateID string, ref, cand features.Signature) Score {
	phashDist := features.HammingDistance(uint64(ref.PHash), uint64(cand.PHash))
	dhashDist := features.HammingDistance(uint64(ref.DHash), uint64(cand.DHash))
	featureSim := features.FeatureSimilarity(ref.Features, cand.Features)
	fallbackSim := features.FallbackSimilarity(ref.Fallback, cand.Fallback)

	effectiveFeatureSim := featureSim
	if featureSim < featureFloor {
		effectiveFeatureSim = fallbackSim
	}

	minHash := phashDist
	if dhashDist < minHash {
		minHash = dhashDist
	}

	combined := 0.55*float64(minHash) + 0.45*(1-effectiveFeatureSim)*20

	return Score{
		RefID:       refID,
		CandidateID: candidateID,
		PHashDist:   phashDist,
		DHashDist:   dhashDist,
		FeatureSim:  featureSim,
		FallbackSim: fallbackSim,
		Combined:    combined,
	}
}

// Admissible reports whether s clears at least one of the four signal
// gates under the given tier's thresholds (spec.md §4.3).
func Admissible(s Score, th tier.Thresholds) bool {
	return s.PHashDist <= th.PHashMax ||
		s.DHashDist <= th.DHashMax ||
		s.FeatureSim >= th.FeatureMin ||
		s.FallbackSim >= th.FallbackMin
}

// Method identifies which signal drove admissibility for s under th.
// Hash agreement is checked first because it is the cheapest and most
// specific signal: when both hashes clear their caps the one with the
// smaller distance is reported (phash on a tie), otherwise whichever
// hash cleared. Features, then fallback, only decide the method when
// neither hash cleared its cap.
func Method(s Score, th tier.Thresholds) string {
	phashOK := s.PHashDist <= th.PHashMax
	dhashOK := s.DHashDist <= th.DHashMax
	switch {
	case phashOK && dhashOK:
		if s.PHashDist <= s.DHashDist {
			return "phash"
		}
		return "dhash"
	case phashOK:
		return "phash"
	case dhashOK:
		return "dhash"
	case s.FeatureSim >= th.FeatureMin:
		return "features"
	default:
		return "fallback"
	}
}
