package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "mp3", "codec_type": "audio", "sample_rate": "44100", "channels": 1}
  ],
  "format": {"duration": "30.0", "size": "1024"}
}`

type cliTestEnv struct {
	cfg        testConfigPaths
	configPath string
	baseDir    string
}

type testConfigPaths struct {
	stagingDir  string
	logDir      string
	historyPath string
	ffmpegPath  string
	ffprobePath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	paths := testConfigPaths{
		stagingDir:  filepath.Join(base, "staging"),
		logDir:      filepath.Join(base, "logs"),
		historyPath: filepath.Join(base, "history", "bindery.db"),
		ffmpegPath:  writeScript(t, base, "ffmpeg", fakeFFmpegScript),
		ffprobePath: writeScript(t, base, "ffprobe", fakeFFprobeScript(probeJSON)),
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, paths)

	return &cliTestEnv{cfg: paths, configPath: configPath, baseDir: base}
}

// fakeFFmpegScript emits one progress update and writes the output
// file, which Plan.Args always places last.
const fakeFFmpegScript = `#!/bin/sh
for arg in "$@"; do out="$arg"; done
echo "out_time_us=30000000" >&2
echo "progress=end" >&2
printf 'merged-audio' > "$out"
`

func fakeFFprobeScript(payload string) string {
	return "#!/bin/sh\ncat <<'EOF'\n" + payload + "\nEOF\n"
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write %s script: %v", name, err)
	}
	return path
}

func writeTestConfig(t *testing.T, path string, paths testConfigPaths) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
staging_dir = %q
log_dir = %q

[ffmpeg]
binary = %q
probe_binary = %q

[history]
enabled = true
path = %q
`,
		paths.stagingDir,
		paths.logDir,
		paths.ffmpegPath,
		paths.ffprobePath,
		paths.historyPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeTestInputs creates dummy audio files. The fake ffprobe never
// reads them, so the content is arbitrary.
func writeTestInputs(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir inputs: %v", err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
			t.Fatalf("write input %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
