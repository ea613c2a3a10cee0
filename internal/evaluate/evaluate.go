// Package evaluate orchestrates the full pipeline described in spec.md
// §2: image I/O, feature extraction, tier classification, pairwise
// scoring, assignment, and diagnostics, producing a report.Report.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mobiusrecall/internal/assignment"
	"mobiusrecall/internal/config"
	"mobiusrecall/internal/evalerr"
	"mobiusrecall/internal/features"
	"mobiusrecall/internal/imageio"
	"mobiusrecall/internal/manifest"
	"mobiusrecall/internal/report"
	"mobiusrecall/internal/scoring"
	"mobiusrecall/internal/tier"
)

// Options configures a single evaluation run.
type Options struct {
	ReferenceDir   string
	ExtractedDir   string
	ManifestPath   string
	ManifestFormat manifest.Format
	ConfigPath     string
	Logger         *slog.Logger
}

type refEntry struct {
	id  string
	tr  tier.Tier
	sig features.Signature
}

type candEntry struct {
	id    string
	sig   features.Signature
	extra map[string]any
}

// Run executes one evaluation and returns the completed report. Fatal
// conditions (spec.md §7) return a non-nil error and no report; the
// caller must not write partial output in that case.
func Run(ctx context.Context, opts Options) (*report.Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if info, err := os.Stat(opts.ReferenceDir); err != nil || !info.IsDir() {
		return nil, evalerr.InputMissing(opts.ReferenceDir, "reference directory not found")
	}
	if info, err := os.Stat(opts.ExtractedDir); err != nil || !info.IsDir() {
		return nil, evalerr.InputMissing(opts.ExtractedDir, "extracted directory not found")
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, evalerr.ManifestMalformed(opts.ConfigPath, err.Error())
	}
	tierTable, acceptance := cfg.Normalize()

	man, err := manifest.Load(opts.ManifestPath, opts.ManifestFormat)
	if err != nil {
		return nil, err
	}

	refs, err := loadReferences(opts.ReferenceDir, logger)
	if err != nil {
		return nil, err
	}
	cands, err := loadCandidates(opts.ExtractedDir, man, logger)
	if err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].id < refs[j].id })
	sort.Slice(cands, func(i, j int) bool { return cands[i].id < cands[j].id })

	// scores[refIndex][candIndex] holds every pairwise score, computed in
	// the ordering guarantee of spec.md §5: references sorted by ref_id,
	// candidates within a reference sorted by candidate filename.
	scores := make([][]scoring.Score, len(refs))
	for i, ref := range refs {
		row := make([]scoring.Score, len(cands))
		for j, cand := range cands {
			row[j] = scoring.Compute(ref.id, cand.id, ref.sig, cand.sig)
		}
		scores[i] = row
	}

	var edges []assignment.Edge
	for i, ref := range refs {
		th, err := tierTable.Get(ref.tr)
		if err != nil {
			return nil, evalerr.ManifestMalformed(ref.id, err.Error())
		}
		for j, cand := range cands {
			if scoring.Admissible(scores[i][j], th) {
				edges = append(edges, assignment.Edge{
					RefIndex:  i,
					CandIndex: j,
					RefID:     ref.id,
					CandID:    cand.id,
					Cost:      scores[i][j].Combined,
				})
			}
		}
	}

	result := assignment.Solve(len(refs), len(cands), edges)

	candHolder := make([]int, len(cands)) // ref index holding this candidate, -1 if none
	for j := range candHolder {
		candHolder[j] = -1
	}
	for i, j := range result.RefToCand {
		if j >= 0 {
			candHolder[j] = i
		}
	}

	invariantViolated := false

	matches := make([]report.Match, 0, len(refs))
	assignedCand := make([]bool, len(cands))
	for i, ref := range refs {
		j := result.RefToCand[i]
		if j < 0 {
			continue
		}
		th, _ := tierTable.Get(ref.tr)
		s := scores[i][j]
		matches = append(matches, report.Match{
			RefID:         ref.id,
			CandidateID:   cands[j].id,
			CombinedScore: s.Combined,
			Method:        scoring.Method(s, th),
			PHashDist:     s.PHashDist,
			DHashDist:     s.DHashDist,
			FeatureSim:    s.FeatureSim,
			FallbackSim:   s.FallbackSim,
			ManifestExtra: cands[j].extra,
		})
		assignedCand[j] = true
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].RefID < matches[j].RefID })

	falsePositives := make([]string, 0)
	for j, cand := range cands {
		if !assignedCand[j] {
			falsePositives = append(falsePositives, cand.id)
		}
	}
	sort.Strings(falsePositives)

	misses := make([]report.Miss, 0)
	for i, ref := range refs {
		if result.RefToCand[i] >= 0 {
			continue
		}
		miss := buildMiss(ref, i, refs, cands, scores[i], candHolder, tierTable)
		misses = append(misses, miss)
	}
	sort.Slice(misses, func(i, j int) bool { return misses[i].RefID < misses[j].RefID })

	invariantViolations := collectInvariantViolations(misses)
	if len(invariantViolations) > 0 {
		invariantViolated = true
		for _, msg := range invariantViolations {
			logger.Error("invariant violation detected by tier audit", "detail", msg)
		}
	}

	recallDenominator := len(refs)
	recallNumerator := len(matches)
	recall := 0.0
	if recallDenominator > 0 {
		recall = float64(recallNumerator) / float64(recallDenominator)
	}

	perTier := make(map[string]report.TierBreakdown, len(tier.All))
	for _, t := range tier.All {
		refCount := 0
		for _, ref := range refs {
			if ref.tr == t {
				refCount++
			}
		}
		matchCount := 0
		refTierByID := make(map[string]tier.Tier, len(refs))
		for _, ref := range refs {
			refTierByID[ref.id] = ref.tr
		}
		for _, m := range matches {
			if refTierByID[m.RefID] == t {
				matchCount++
			}
		}
		tierRecall := 0.0
		if refCount > 0 {
			tierRecall = float64(matchCount) / float64(refCount)
		}
		perTier[string(t)] = report.TierBreakdown{References: refCount, Matches: matchCount, Recall: tierRecall}
	}

	var ceiling *report.CeilingNotice
	if len(cands) < len(refs) && len(refs) > 0 {
		ceiling = &report.CeilingNotice{
			ExtractedCount:    len(cands),
			ReferenceCount:    len(refs),
			MaxPossibleRecall: float64(len(cands)) / float64(len(refs)),
		}
		fmt.Fprintf(os.Stdout, "ceiling notice: candidate pool (%d) smaller than reference set (%d); max possible recall %.4f\n",
			len(cands), len(refs), ceiling.MaxPossibleRecall)
	}

	verdict := report.VerdictFail
	if !invariantViolated && recall >= acceptance.RecallFloor && len(falsePositives) <= acceptance.FalsePositiveCeil {
		verdict = report.VerdictPass
	}

	rep := &report.Report{
		Recall:              recall,
		RecallNumerator:     recallNumerator,
		RecallDenominator:   recallDenominator,
		FalsePositiveCount:  len(falsePositives),
		Verdict:             verdict,
		CeilingNotice:       ceiling,
		PerTier:             perTier,
		Matches:             matches,
		FalsePositives:      falsePositives,
		Misses:              misses,
		InvariantViolations: invariantViolations,
	}
	return rep, nil
}

func loadReferences(dir string, logger *slog.Logger) ([]refEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, evalerr.InputMissing(dir, fmt.Sprintf("cannot list reference directory: %s", err))
	}

	refs := make([]refEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		img, err := imageio.Load(path)
		if err != nil {
			var unrecognized *imageio.UnrecognizedFormatError
			if errors.As(err, &unrecognized) {
				// Not an image at all (stray .DS_Store, README, ...):
				// ignored with a warning per spec.md §6, not fatal.
				logger.Warn("ignoring non-image file in reference directory", "path", path)
				continue
			}
			// A reference cannot decode: fatal, since a missing truth
			// point invalidates the run.
			return nil, err
		}
		bounds := img.Bounds()
		id := idFromFileName(e.Name())
		refs = append(refs, refEntry{
			id:  id,
			tr:  tier.Classify(bounds.Dx(), bounds.Dy()),
			sig: features.Compute(img),
		})
		logger.Debug("loaded reference", "ref_id", id, "width", bounds.Dx(), "height", bounds.Dy())
	}
	return refs, nil
}

func loadCandidates(dir string, man *manifest.Manifest, logger *slog.Logger) ([]candEntry, error) {
	onDisk := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, evalerr.InputMissing(dir, fmt.Sprintf("cannot list extracted directory: %s", err))
	}
	for _, e := range entries {
		if !e.IsDir() {
			onDisk[e.Name()] = true
		}
	}

	names := make([]string, 0, len(man.Items))
	for name := range man.Items {
		names = append(names, name)
	}
	sort.Strings(names)

	cands := make([]candEntry, 0, len(names))
	for _, name := range names {
		if !onDisk[name] {
			return nil, evalerr.DecodeFailure(filepath.Join(dir, name), "manifest lists a candidate that does not exist on disk")
		}
		path := filepath.Join(dir, name)
		img, err := imageio.Load(path)
		if err != nil {
			// Fatal: the manifest lies about a candidate it lists.
			return nil, err
		}
		cands = append(cands, candEntry{
			id:    idFromFileName(name),
			sig:   features.Compute(img),
			extra: man.Items[name].Extra,
		})
	}

	for name := range onDisk {
		if _, ok := man.Items[name]; !ok {
			logger.Warn("candidate present on disk but absent from manifest; ignored", "file", name)
		}
	}

	return cands, nil
}

func idFromFileName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext)
}

// collectInvariantViolations implements spec.md §7's InvariantViolation
// handling: every miss whose tier audit classified as
// UNEXPECTED_CURRENT_TIER_SHOULD_MATCH is a structural bug signal, not a
// genuine extraction gap. misses must already be in sorted ref_id order
// so the returned messages are too. Returns an empty, non-nil slice when
// there are none, so the caller's len()==0 check and report.Report's
// omitempty both behave the same way on a correct run.
func collectInvariantViolations(misses []report.Miss) []string {
	violations := make([]string, 0)
	for _, miss := range misses {
		if miss.Audit.Classification == classUnexpectedShouldMatch {
			violations = append(violations, evalerr.InvariantViolation(miss.RefID,
				"assignment solver left an admissible, unassigned pair unmatched").Error())
		}
	}
	return violations
}
