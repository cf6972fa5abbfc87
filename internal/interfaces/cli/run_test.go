package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/infrastructure/pdbio"
	"github.com/turtacn/flexbind/internal/testutil"
	"github.com/turtacn/flexbind/pkg/types/design"
)

// writeFixturePDB writes a single-chain synthetic structure as a PDB file.
func writeFixturePDB(t *testing.T, dir, name string, s *structure.Structure) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, pdbio.Write(f, s))
	return path
}

func fixturePaths(t *testing.T, dir string) (string, string) {
	t.Helper()
	target := &structure.Structure{Chains: []structure.Chain{
		testutil.MakeChain("A", "AGLSV", r3.Vec{}, 1, 1),
	}}
	binder := &structure.Structure{Chains: []structure.Chain{
		testutil.MakeChain("B", "KTWSEV", r3.Vec{Y: 5}, -1, 1),
	}}
	return writeFixturePDB(t, dir, "target.pdb", target),
		writeFixturePDB(t, dir, "binder.pdb", binder)
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	target, binder := fixturePaths(t, dir)
	outDir := filepath.Join(dir, "results")

	stdout, stderr, err := execute(t,
		"run",
		"--target", target,
		"--binder", binder,
		"--mode", "fast",
		"--seed", "42",
		"--out", outDir,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "designs")
	assert.Contains(t, stderr, "Step 1")
	assert.Contains(t, stderr, "100%")

	// report.json round-trips with a done outcome and ranked designs.
	data, err := os.ReadFile(filepath.Join(outDir, "report.json"))
	require.NoError(t, err)
	var report design.JobReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, design.OutcomeDone, report.Outcome)
	assert.Equal(t, uint64(42), report.Seed)
	require.NotEmpty(t, report.Designs)

	// designs.csv has a header plus one row per design.
	f, err := os.Open(filepath.Join(outDir, "designs.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(report.Designs)+1)
	assert.Equal(t, "rank", rows[0][0])
	assert.Equal(t, report.Designs[0].Sequence, rows[1][1])

	// designs.fasta pairs a header line with each sequence.
	fasta, err := os.ReadFile(filepath.Join(outDir, "designs.fasta"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(fasta)), "\n")
	require.Len(t, lines, 2*len(report.Designs))
	assert.True(t, strings.HasPrefix(lines[0], ">design_001"))
	assert.Equal(t, report.Designs[0].Sequence, lines[1])

	// Ground state plus one PDB per representative state.
	_, err = os.Stat(filepath.Join(outDir, "ground.pdb"))
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(outDir, "state_*.pdb"))
	require.NoError(t, err)
	assert.Len(t, matches, report.EnsembleSize)
}

func TestRunCommandWritesReportOnFailure(t *testing.T) {
	dir := t.TempDir()
	target, binder := fixturePaths(t, dir)
	outDir := filepath.Join(dir, "results")

	_, _, err := execute(t,
		"run",
		"--target", target,
		"--binder", binder,
		"--mode", "warp",
		"--out", outDir,
	)
	require.Error(t, err)

	data, readErr := os.ReadFile(filepath.Join(outDir, "report.json"))
	require.NoError(t, readErr)
	var report design.JobReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, design.OutcomeFailed, report.Outcome)
	assert.NotEmpty(t, report.FailReason)
}

func TestRunCommandGlycosylationFilterDefaultsOn(t *testing.T) {
	cmd := NewRunCmd(&RootOptions{})
	on, err := cmd.Flags().GetBool("no-glycosylation")
	require.NoError(t, err)
	assert.True(t, on, "the sequon filter is on unless explicitly disabled")
}

func TestRunCommandMissingFlags(t *testing.T) {
	_, _, err := execute(t, "run", "--target", "only.pdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binder")
}

func TestRunCommandMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, binder := fixturePaths(t, dir)

	_, _, err := execute(t,
		"run",
		"--target", filepath.Join(dir, "absent.pdb"),
		"--binder", binder,
		"--out", filepath.Join(dir, "results"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
}
