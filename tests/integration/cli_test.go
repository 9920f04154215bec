package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain builds the nasacl binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "nasacl-test-*")
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	nasaclBin = filepath.Join(tmpDir, "nasacl")

	cmd := exec.Command("go", "build", "-o", nasaclBin, "./cmd/nasacl")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestInitCreatesStore(t *testing.T) {
	env := NewTestEnv(t, "0")
	result := env.MustRun("init")

	assert.Contains(t, result.Stdout, "nasacl initialized")
	for _, name := range []string{"acl.db", "acl_tables.jsonl", "acl_entries.jsonl", "id_generators.jsonl"} {
		assert.FileExists(t, filepath.Join(env.DataDir, name))
	}
}

func TestACLLifecycle(t *testing.T) {
	env := NewTestEnv(t, "1")

	table := ParseJSON[Created](t, env.MustRun("--json", "table", "create",
		"--stage", "ingress", "--priority", "5", "--allow", "SRC_IP,L4_DST_PORT").Stdout)
	require.Equal(t, Created{Entity: "Table", ID: 1}, table)

	counter := ParseJSON[Created](t, env.MustRun("--json", "counter", "create", "1", "--type", "PACKET").Stdout)
	require.Equal(t, uint64(1), counter.ID)

	entry := ParseJSON[Created](t, env.MustRun("--json", "entry", "create", "1", "--priority", "10",
		"--filter", "SRC_IP=10.0.0.0/8", "--filter", "L4_DST_PORT=443",
		"--action", "PACKET_ACTION=DROP", "--action", "SET_COUNTER=1").Stdout)
	require.Equal(t, uint64(1), entry.ID)

	tables := ParseJSON[[]Table](t, env.MustRun("--json", "table", "show").Stdout)
	require.Len(t, tables, 1)
	assert.Equal(t, uint32(1), tables[0].SwitchID)
	assert.Equal(t, "INGRESS", tables[0].Stage)
	assert.ElementsMatch(t, []string{"SRC_IP", "L4_DST_PORT"}, tables[0].AllowedFilters)

	show := env.MustRun("entry", "show", "1", "1").Stdout
	assert.Contains(t, show, "filter L4_DST_PORT: 443")
	assert.Contains(t, show, "action SET_COUNTER: 1")

	// Requests the store refuses are user errors.
	assert.Equal(t, 1, env.Run("", "entry", "filter", "append", "1", "1", "SRC_IP=10.1.0.0/16").ExitCode)
	assert.Equal(t, 1, env.Run("", "counter", "delete", "1", "1").ExitCode)
	assert.Equal(t, 1, env.Run("", "table", "delete", "1").ExitCode)

	stats := ParseJSON[[]Stats](t, env.MustRun("--json", "stats", "show", "1", "1").Stdout)
	require.Len(t, stats, 1)
	assert.Zero(t, stats[0].MatchedPackets)

	env.MustRun("entry", "delete", "1", "1")
	env.MustRun("counter", "delete", "1", "1")
	assert.Contains(t, env.MustRun("table", "delete", "1").Stdout, "Deleted Table 1")
	assert.Equal(t, "[]\n", env.MustRun("--json", "table", "show").Stdout)
}

func TestApplyFromStdin(t *testing.T) {
	env := NewTestEnv(t, "0")
	manifest := `
switch_id: 2
tables:
  - name: mgmt
    stage: egress
    allowed_filters: [DST_IP]
    entries:
      - filters: {DST_IP: 172.16.0.1}
        actions: {PACKET_ACTION: TRAP_TO_CPU}
`
	result := env.Run(manifest, "apply", "-f", "-")
	require.Equal(t, 0, result.ExitCode, result.Stderr)
	assert.Contains(t, result.Stdout, `table "mgmt": id 1`)

	assert.Contains(t, env.MustRun("--switch-id", "2", "entry", "show").Stdout, "ACL Entry 1 in table 1 (switch 2)")
}
