package aos

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/OpenISA/oi-dbt/internal/dbt/optimizer"
	"github.com/OpenISA/oi-dbt/oi"
)

func TestAppendThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aos.jsonl")

	db, err := Load(path)
	require.NoError(t, err)

	rec := Record{
		DNA:         oi.DNA(12345),
		Opts:        SetOpts{Level: optimizer.LevelBasic, Passes: []optimizer.PassCode{optimizer.PassDCE}},
		CompileTime: 2 * time.Millisecond,
		ExecTime:    9 * time.Microsecond,
	}
	require.NoError(t, db.Append(rec))

	reloaded, err := Load(path)
	require.NoError(t, err)
	recs := reloaded.Lookup(rec.DNA)
	require.Len(t, recs, 1)
	require.Equal(t, rec.Opts.Level, recs[0].Opts.Level)
	require.Equal(t, rec.Opts.Passes, recs[0].Opts.Passes)
}

func TestLoadMissingFileReturnsEmptyDatabase(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "does-not-exist.jsonl"))
	require.NoError(t, err)
	require.Empty(t, db.Lookup(oi.DNA(1)))
}

func TestHeuristicSolverEscalatesAfterTwoRecompiles(t *testing.T) {
	s := &HeuristicSolver{}
	dna := oi.DNA(7)

	require.Equal(t, optimizer.LevelBasic, s.Select(dna, 0).Level)
	require.Equal(t, optimizer.LevelBasic, s.Select(dna, 1).Level)
	require.Equal(t, optimizer.LevelAggressive, s.Select(dna, 2).Level)
}

func TestHeuristicSolverRepeatsDatabaseDecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aos.jsonl")
	db, err := Load(path)
	require.NoError(t, err)

	dna := oi.DNA(99)
	require.NoError(t, db.Append(Record{DNA: dna, Opts: SetOpts{Level: optimizer.LevelAggressive}}))

	s := &HeuristicSolver{DB: db}
	require.Equal(t, optimizer.LevelAggressive, s.Select(dna, 0).Level)
}
