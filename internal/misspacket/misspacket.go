// Package misspacket writes the optional miss-packet directory tree
// described in spec.md §4.6: one subdirectory per unmatched reference,
// containing a copy of the reference image, copies of its top-five
// candidates, and a per-miss metrics.json, plus a top-level
// miss_packet.json index. Intended for human visual review, not
// covered by the report's byte-identical determinism property.
package misspacket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mobiusrecall/internal/report"
)

// Options configures where source images live and where the packet is
// written.
type Options struct {
	ReferenceDir string
	ExtractedDir string
	OutputDir    string
	Logger       *slog.Logger
}

// candidateInfo mirrors generate_miss_packet.py's per-candidate entry,
// pulling bbox/DPI/tier fields through from the manifest when present.
type candidateInfo struct {
	Rank            int            `json:"rank"`
	File            string         `json:"file"`
	PHashDist       int            `json:"phash_dist"`
	DHashDist       int            `json:"dhash_dist"`
	FeatureSim      float64        `json:"feature_sim"`
	FallbackSim     float64        `json:"fallback_sim"`
	CombinedScore   float64        `json:"combined_score"`
	AlreadyAssigned bool           `json:"already_assigned"`
	ManifestData    map[string]any `json:"manifest_data,omitempty"`
}

type missInfo struct {
	Reference      string          `json:"reference"`
	Tier           string          `json:"tier"`
	Classification string          `json:"classification"`
	Recommendation string          `json:"recommendation"`
	TopCandidates  []candidateInfo `json:"top_candidates"`
}

type packet struct {
	GeneratedAt time.Time  `json:"generated_at"`
	RunID       string     `json:"run_id"`
	TotalMisses int        `json:"total_misses"`
	Misses      []missInfo `json:"misses"`
}

// Write emits the packet for every miss in rep. If rep has no misses it
// creates OutputDir and writes only a miss_packet.json index with an
// empty misses list.
func Write(opts Options, rep *report.Report) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating miss-packet output dir: %w", err)
	}

	refFiles, err := indexByID(opts.ReferenceDir)
	if err != nil {
		return fmt.Errorf("indexing reference directory: %w", err)
	}
	candFiles, err := indexByID(opts.ExtractedDir)
	if err != nil {
		return fmt.Errorf("indexing extracted directory: %w", err)
	}

	pkt := packet{
		GeneratedAt: time.Now().UTC(),
		RunID:       uuid.NewString(),
		TotalMisses: len(rep.Misses),
		Misses:      make([]missInfo, 0, len(rep.Misses)),
	}

	assignedCand := make(map[string]bool, len(rep.Matches))
	for _, m := range rep.Matches {
		assignedCand[m.CandidateID] = true
	}

	for _, miss := range rep.Misses {
		refFile, ok := refFiles[miss.RefID]
		if !ok {
			logger.Warn("miss packet: reference file not found on disk", "ref_id", miss.RefID)
			continue
		}

		missDir := filepath.Join(opts.OutputDir, miss.RefID)
		if err := os.MkdirAll(missDir, 0o755); err != nil {
			return fmt.Errorf("creating miss dir for %s: %w", miss.RefID, err)
		}

		if err := copyFile(filepath.Join(opts.ReferenceDir, refFile), filepath.Join(missDir, "reference_"+refFile)); err != nil {
			return fmt.Errorf("copying reference image for %s: %w", miss.RefID, err)
		}

		candidates := make([]candidateInfo, 0, len(miss.TopCandidates))
		for _, c := range miss.TopCandidates {
			candFile, ok := candFiles[c.CandidateID]
			if !ok {
				logger.Warn("miss packet: candidate file not found on disk", "candidate_id", c.CandidateID)
				continue
			}
			dst := filepath.Join(missDir, fmt.Sprintf("candidate_%02d_%s", c.Rank, candFile))
			if err := copyFile(filepath.Join(opts.ExtractedDir, candFile), dst); err != nil {
				return fmt.Errorf("copying candidate image %s: %w", c.CandidateID, err)
			}
			candidates = append(candidates, candidateInfo{
				Rank:            c.Rank,
				File:            candFile,
				PHashDist:       c.PHashDist,
				DHashDist:       c.DHashDist,
				FeatureSim:      c.FeatureSim,
				FallbackSim:     c.FallbackSim,
				CombinedScore:   c.CombinedScore,
				AlreadyAssigned: assignedCand[c.CandidateID],
				ManifestData:    c.ManifestExtra,
			})
		}

		info := missInfo{
			Reference:      miss.RefID,
			Tier:           miss.Tier,
			Classification: miss.Audit.Classification,
			Recommendation: miss.Audit.Recommendation,
			TopCandidates:  candidates,
		}

		if err := writeJSON(filepath.Join(missDir, "metrics.json"), info); err != nil {
			return fmt.Errorf("writing metrics.json for %s: %w", miss.RefID, err)
		}
		logger.Debug("wrote miss packet entry", "ref_id", miss.RefID, "candidates", len(candidates))

		pkt.Misses = append(pkt.Misses, info)
	}

	if err := writeJSON(filepath.Join(opts.OutputDir, "miss_packet.json"), pkt); err != nil {
		return fmt.Errorf("writing miss_packet.json: %w", err)
	}
	logger.Info("miss packet written", "output_dir", opts.OutputDir, "misses", len(pkt.Misses))

	return nil
}

// indexByID maps a directory's file basenames (without extension) to
// their full filename, mirroring evaluate.idFromFileName so lookups
// stay consistent between the two packages.
func indexByID(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		id := e.Name()[:len(e.Name())-len(ext)]
		idx[id] = e.Name()
	}
	return idx, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
