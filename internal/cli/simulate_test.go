package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: one-beat
description: the first downbeat is scheduled and fired
config:
  timing:
    lookahead_ms: 20
steps:
  - action: start
  - action: advance
    seconds: 0.07
assertions:
  - type: tone_count
    count: 1
  - type: fire_order
    beats: [0]
`

const failingScenario = `name: wrong-count
description: expects more tones than a short run produces
steps:
  - action: start
  - action: advance
    seconds: 0.07
assertions:
  - type: tone_count
    count: 4
`

func runSimulateCommand(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSimulate_BundledScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := runSimulateCommand(t, &RootOptions{Format: "text", Fs: afero.NewOsFs()}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ basic_120")
	assert.Contains(t, out, "3 passed, 0 failed, 3 total")
}

func TestSimulate_Failure(t *testing.T) {
	fs := configFs(t, map[string]string{
		"/s/ok.yaml":   passingScenario,
		"/s/bad.yaml":  failingScenario,
		"/s/notes.txt": "ignored",
	})

	out, err := runSimulateCommand(t, &RootOptions{Format: "text", Fs: fs}, "/s")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ one-beat")
	assert.Contains(t, out, "✗ wrong-count")
	assert.Contains(t, out, "Expected: 4 tones")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestSimulate_Filter(t *testing.T) {
	fs := configFs(t, map[string]string{
		"/s/ok.yaml":  passingScenario,
		"/s/bad.yaml": failingScenario,
	})

	out, err := runSimulateCommand(t, &RootOptions{Format: "text", Fs: fs}, "/s", "--filter", "o*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestSimulate_JSONWithTrace(t *testing.T) {
	fs := configFs(t, map[string]string{"/ok.yaml": passingScenario})

	out, err := runSimulateCommand(t, &RootOptions{Format: "json", Fs: fs}, "/ok.yaml", "--trace")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)

	sr := resp.Data.Scenarios[0]
	assert.True(t, sr.Pass)
	require.NotNil(t, sr.Result)
	assert.Equal(t, "one-beat", sr.Result.ScenarioName)
	assert.Equal(t, 1, sr.Result.Final.NextBeat)
}

func TestSimulate_TextTrace(t *testing.T) {
	fs := configFs(t, map[string]string{"/ok.yaml": passingScenario})

	out, err := runSimulateCommand(t, &RootOptions{Format: "text", Fs: fs}, "/ok.yaml", "--trace")
	require.NoError(t, err)
	assert.Contains(t, out, "# scenario: one-beat")
	assert.Contains(t, out, "0.020 tone freq=880 start=0.050 dur=0.030 accent")
	assert.Contains(t, out, "0.064 fire beat=0 time=0.050")
}

func TestSimulate_LoadError(t *testing.T) {
	fs := configFs(t, map[string]string{"/broken.yaml": "name: x\n"})

	out, err := runSimulateCommand(t, &RootOptions{Format: "text", Fs: fs}, "/broken.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "Load error")
}

func TestSimulate_MissingPath(t *testing.T) {
	out, err := runSimulateCommand(t, &RootOptions{Format: "text", Fs: afero.NewMemMapFs()}, "/nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestSimulate_NoScenarios(t *testing.T) {
	fs := configFs(t, map[string]string{"/s/readme.md": "nothing here"})

	_, err := runSimulateCommand(t, &RootOptions{Format: "text", Fs: fs}, "/s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
}
