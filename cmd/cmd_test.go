package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppapidoc/pkg/errors"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietContext(t *testing.T) context.Context {
	t.Helper()
	var buf bytes.Buffer
	return withLogger(context.Background(), newLogger(&buf, log.ErrorLevel))
}

func readOutput(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

const header = `/// Adds two numbers.
/// \ingroup math
int add(int a, int b);
`

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			assert.Equal(t, tt.wantLog, buf.Len() > 0)
		})
	}
}

func TestLoggerLevel(t *testing.T) {
	level, err := loggerLevel("warn", false)
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, level)

	level, err = loggerLevel("warn", true)
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, level)

	level, err = loggerLevel("", false)
	require.NoError(t, err)
	assert.Equal(t, log.InfoLevel, level)

	_, err = loggerLevel("loud", false)
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.GetKind(err))
}

func TestLoggerFromContext(t *testing.T) {
	assert.Equal(t, log.Default(), loggerFromContext(context.Background()))

	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	got := loggerFromContext(withLogger(context.Background(), l))
	assert.Same(t, l, got)

	newProgress(got).done("finished", "count", 3)
	assert.Contains(t, buf.String(), "finished")
	assert.Contains(t, buf.String(), "elapsed")
}

func TestRunGenerate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "include", "math.hpp"), header)
	cfgPath := writeFile(t, filepath.Join(dir, "api.yaml"), `input_path: include/math.hpp
document_prefix: api/
include_directory_map:
  include/: ""
`)
	outPath := filepath.Join(dir, "out", "api.json")

	require.NoError(t, runGenerate(quietContext(t), cfgPath, outPath, false, nil))

	out := readOutput(t, outPath)
	var entities map[string]map[string]any
	require.NoError(t, json.Unmarshal(out["entities"], &entities))
	require.Len(t, entities, 1)
	for id, e := range entities {
		assert.Equal(t, "add", e["name"])
		assert.Equal(t, "math.hpp", e["include_path"])
		assert.Equal(t, "api/", e["document_prefix"])

		var groups map[string][]string
		require.NoError(t, json.Unmarshal(out["groups"], &groups))
		assert.Equal(t, map[string][]string{"math": {id}}, groups)
	}
}

func TestRunGenerateStdout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "math.hpp"), header)
	cfgPath := writeFile(t, filepath.Join(dir, "api.json"), `{"input_path": "math.hpp"}`)

	var buf bytes.Buffer
	require.NoError(t, runGenerate(quietContext(t), cfgPath, "-", false, &buf))
	assert.Contains(t, buf.String(), `"entities"`)
	assert.Contains(t, buf.String(), `"add"`)
}

func TestRunGenerateRecordedErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.hpp"), "#include \"missing.h\"\n"+header)
	cfgPath := writeFile(t, filepath.Join(dir, "api.toml"), `input_path = "broken.hpp"`)
	outPath := filepath.Join(dir, "api.json")

	err := runGenerate(quietContext(t), cfgPath, outPath, false, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindParse, errors.GetKind(err))
	assert.FileExists(t, outPath, "output is written even when errors were recorded")

	require.NoError(t, runGenerate(quietContext(t), cfgPath, outPath, true, nil))
}

func TestRunGenerateBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, filepath.Join(dir, "api.yaml"), "input_path: x.hpp\nunknown_key: 1\n")

	err := runGenerate(quietContext(t), cfgPath, "-", false, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.GetKind(err))
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.hpp"), header)
	writeFile(t, filepath.Join(dir, "b.hpp"), "/// Subtracts.\n/// \\ingroup math\nint sub(int a, int b);\n")
	a := writeFile(t, filepath.Join(dir, "a.yaml"), "input_path: a.hpp\n")
	b := writeFile(t, filepath.Join(dir, "b.toml"), `input_path = "b.hpp"`)
	outDir := filepath.Join(dir, "out")

	require.NoError(t, runBatch(quietContext(t), []string{a, b}, 2, outDir, false))
	assert.Contains(t, string(readOutput(t, filepath.Join(outDir, "a.api.json"))["entities"]), `"add"`)
	assert.Contains(t, string(readOutput(t, filepath.Join(outDir, "b.api.json"))["entities"]), `"sub"`)
}

func TestRunBatchFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.hpp"), header)
	a := writeFile(t, filepath.Join(dir, "a.yaml"), "input_path: a.hpp\n")
	missing := filepath.Join(dir, "missing.yaml")

	err := runBatch(quietContext(t), []string{a, missing}, 1, "", false)
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, errors.GetKind(err))
}

func TestBatchOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("dir", "foo.api.json"), batchOutputPath(filepath.Join("dir", "foo.yaml"), ""))
	assert.Equal(t, filepath.Join("out", "foo.api.json"), batchOutputPath(filepath.Join("dir", "foo.json"), "out"))
}

func TestParseEntities(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "math.hpp"), header+"\nint undocumented();\n")

	documented, err := parseEntities(quietContext(t), path, false)
	require.NoError(t, err)
	require.Len(t, documented, 1)
	assert.Equal(t, "add", documented[0].Name)

	all, err := parseEntities(quietContext(t), path, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "undocumented", all[1].Name)

	var buf bytes.Buffer
	require.NoError(t, outputHuman(&buf, path, all))
	assert.Contains(t, buf.String(), "function: add [documented]")
	assert.Contains(t, buf.String(), "Documentation: Adds two numbers.")
	assert.Contains(t, buf.String(), "Total entities: 2")
	assert.Contains(t, buf.String(), "Documented: 1 (50.0%)")

	buf.Reset()
	require.NoError(t, outputJSON(&buf, path, documented))
	var out struct {
		Filename string `json:"filename"`
		Entities []struct {
			Name       string `json:"name"`
			PageName   string `json:"pageName"`
			HasComment bool   `json:"hasComment"`
		} `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, path, out.Filename)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "add", out.Entities[0].PageName)
	assert.True(t, out.Entities[0].HasComment)
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "math.hpp"), header)
	cfgPath := writeFile(t, filepath.Join(dir, "api.yaml"), "input_path: math.hpp\n")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"generate", "--config", cfgPath, "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Contains(t, stdout.String(), `"add"`)
	assert.Empty(t, stderr.String())
}
