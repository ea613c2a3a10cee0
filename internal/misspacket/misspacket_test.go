package misspacket

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobiusrecall/internal/report"
)

func writeFixtureImage(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("not-really-png-but-bytes-are-all-we-copy"), 0o644))
}

func TestWriteCreatesOneDirPerMiss(t *testing.T) {
	refDir := t.TempDir()
	extDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "packet")

	writeFixtureImage(t, refDir, "widget.png")
	writeFixtureImage(t, extDir, "cand-a.png")
	writeFixtureImage(t, extDir, "cand-b.png")

	rep := &report.Report{
		Misses: []report.Miss{
			{
				RefID: "widget",
				Tier:  "ICON",
				Audit: report.Audit{Classification: "NO_TIER_MATCHES", Recommendation: "true extraction gap or reference not present in source"},
				TopCandidates: []report.MissCandidate{
					{Rank: 1, CandidateID: "cand-a", CombinedScore: 5.5},
					{Rank: 2, CandidateID: "cand-b", CombinedScore: 9.1},
				},
			},
		},
	}

	require.NoError(t, Write(Options{ReferenceDir: refDir, ExtractedDir: extDir, OutputDir: outDir}, rep))

	missDir := filepath.Join(outDir, "widget")
	assert.FileExists(t, filepath.Join(missDir, "reference_widget.png"))
	assert.FileExists(t, filepath.Join(missDir, "candidate_01_cand-a.png"))
	assert.FileExists(t, filepath.Join(missDir, "candidate_02_cand-b.png"))
	assert.FileExists(t, filepath.Join(missDir, "metrics.json"))
	assert.FileExists(t, filepath.Join(outDir, "miss_packet.json"))

	indexData, err := os.ReadFile(filepath.Join(outDir, "miss_packet.json"))
	require.NoError(t, err)
	var pkt packet
	require.NoError(t, json.Unmarshal(indexData, &pkt))
	assert.NotEmpty(t, pkt.RunID, "misspacket stamps its own run id; it is not read from report.Report, which carries none")

	data, err := os.ReadFile(filepath.Join(missDir, "metrics.json"))
	require.NoError(t, err)
	var info missInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, "widget", info.Reference)
	assert.Equal(t, "NO_TIER_MATCHES", info.Classification)
	require.Len(t, info.TopCandidates, 2)
	assert.Equal(t, "cand-a.png", info.TopCandidates[0].File)
}

func TestWriteNoMissesStillWritesEmptyIndex(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "packet")
	rep := &report.Report{}

	require.NoError(t, Write(Options{ReferenceDir: t.TempDir(), ExtractedDir: t.TempDir(), OutputDir: outDir}, rep))

	data, err := os.ReadFile(filepath.Join(outDir, "miss_packet.json"))
	require.NoError(t, err)
	var pkt packet
	require.NoError(t, json.Unmarshal(data, &pkt))
	assert.Equal(t, 0, pkt.TotalMisses)
	assert.Empty(t, pkt.Misses)
}

func TestWriteSkipsMissingCandidateFile(t *testing.T) {
	refDir := t.TempDir()
	extDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "packet")

	writeFixtureImage(t, refDir, "widget.png")

	rep := &report.Report{
		Misses: []report.Miss{
			{
				RefID: "widget",
				Tier:  "ICON",
				Audit: report.Audit{Classification: "NO_TIER_MATCHES"},
				TopCandidates: []report.MissCandidate{
					{Rank: 1, CandidateID: "ghost", CombinedScore: 1.0},
				},
			},
		},
	}

	require.NoError(t, Write(Options{ReferenceDir: refDir, ExtractedDir: extDir, OutputDir: outDir}, rep))

	data, err := os.ReadFile(filepath.Join(outDir, "widget", "metrics.json"))
	require.NoError(t, err)
	var info missInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Empty(t, info.TopCandidates)
}
