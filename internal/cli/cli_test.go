package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulate_Text(t *testing.T) {
	out, err := runCmd(t, "simulate", "--n-a", "2000", "--p-a", "0.1", "--n-b", "2000", "--p-b", "0.2", "--seed", "1")
	require.NoError(t, err)

	for _, want := range []string{"GROUP", "95% CI", "P-value:", "Cohen's d:", "performed significantly better", "users per group"} {
		assert.Contains(t, out, want)
	}
}

func TestSimulate_JSONIsReproducible(t *testing.T) {
	args := []string{"simulate", "--n-a", "300", "--p-a", "0.4", "--n-b", "300", "--p-b", "0.45", "--seed", "11", "--json"}

	first, err := runCmd(t, args...)
	require.NoError(t, err)
	second, err := runCmd(t, args...)
	require.NoError(t, err)

	var r1, r2 map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(first), &r1))
	require.NoError(t, json.Unmarshal([]byte(second), &r2))
	assert.Equal(t, r1["a"], r2["a"])
	assert.Equal(t, r1["comparison"], r2["comparison"])
}

func TestSimulate_InvalidRate(t *testing.T) {
	_, err := runCmd(t, "simulate", "--p-a", "1.5")
	assert.Error(t, err)
}

func TestSampleSize(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"samplesize", "--mde", "0.05", "--power", "0.8"}, "~6,280 users per group"},
		{[]string{"samplesize", "--mde", "0.5", "--power", "0.8"}, "~63 users per group"},
		{[]string{"samplesize", "--mde", "0.02", "--scale", "proportion", "--baseline", "0.1"}, "from a 10.00% baseline"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := runCmd(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSampleSize_Invalid(t *testing.T) {
	_, err := runCmd(t, "samplesize", "--mde", "-1")
	assert.Error(t, err)
}

func TestAnalyze_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.csv")
	data := "variant,clicked\nA,0\nA,0\nA,1\nB,1\nB,1\nB,0\ncontrol,1\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	out, err := runCmd(t, "analyze", path, "--group-col", "variant", "--outcome-col", "clicked", "--json")
	require.NoError(t, err)

	var r map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "file", r["source"])
	assert.Equal(t, float64(3), r["a"].(map[string]interface{})["n"])
	assert.Equal(t, float64(3), r["b"].(map[string]interface{})["n"])
}

func TestAnalyze_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	db.MustExec(`CREATE TABLE outcomes ("group" TEXT, converted INTEGER)`)
	for _, row := range []struct {
		g string
		c int
	}{{"A", 0}, {"A", 1}, {"A", 0}, {"B", 1}, {"B", 1}, {"B", 1}} {
		db.MustExec(`INSERT INTO outcomes ("group", converted) VALUES (?, ?)`, row.g, row.c)
	}
	require.NoError(t, db.Close())

	out, err := runCmd(t, "analyze", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "SOURCE: database")
}

func TestAnalyze_NeedsOneSource(t *testing.T) {
	_, err := runCmd(t, "analyze")
	assert.Error(t, err)

	_, err = runCmd(t, "analyze", "file.csv", "--db", "events.db")
	assert.Error(t, err)
}

func TestExport_CSV(t *testing.T) {
	out, err := runCmd(t, "export", "--n-a", "5", "--n-b", "7", "--seed", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 13)
	assert.Equal(t, "group,converted", lines[0])
}

func TestExport_XLSXCanBeAnalyzed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.xlsx")

	_, err := runCmd(t, "export", "--n-a", "200", "--p-a", "0.2", "--n-b", "200", "--p-b", "0.3", "--seed", "5", "-o", path)
	require.NoError(t, err)

	out, err := runCmd(t, "analyze", path, "--json")
	require.NoError(t, err)

	var r map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, float64(200), r["a"].(map[string]interface{})["n"])
}

func TestExport_InvalidFormat(t *testing.T) {
	_, err := runCmd(t, "export", "--format", "parquet")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absim.yaml")
	cfg := "simulation:\n  n_a: 10\n  p_a: 0.5\n  n_b: 20\n  p_b: 0.5\n  seed: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))

	out, err := runCmd(t, "--config", path, "export")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 31)
}
