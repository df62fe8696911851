package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/timer-ocr-mcp/internal/config"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
)

// execute runs the command line with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(BuildInfo{Version: "1.2.3", BuildTime: "today", GitCommit: "abc123"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"timer-ocr-mcp 1.2.3", "Build time: today", "Git commit: abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{[]string{"parse", "12:34"}, "12:34 (45240000 ms)", false},
		{[]string{"parse", "545"}, "05:45", false},
		{[]string{"parse", "7"}, "00:07", false},
		{[]string{"parse", "1234567"}, "", true},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q missing %q", out, tt.want)
			}
		})
	}
}

func TestParse_JSON(t *testing.T) {
	out, err := execute(t, "parse", "1:30", "--json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got parseOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	if got.Hours != 1 || got.Minutes != 30 || got.Millis != 5400000 || got.Formatted != "01:30" {
		t.Errorf("got %+v", got)
	}
}

func TestConfigFlag_MissingFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLogLevelFlag_Invalid(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "version")
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestCountdown_ZeroDuration(t *testing.T) {
	if _, err := execute(t, "countdown", "00:00"); err == nil {
		t.Fatal("expected error for zero countdown")
	}
}

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CacheDir = t.TempDir()
	cfg.TickInterval = 5 * time.Millisecond
	cfg.Preprocess.Enabled = false
	return &app{cfg: cfg}
}

func TestRunCountdown(t *testing.T) {
	a := testApp(t)
	var out bytes.Buffer
	if err := a.runCountdown(context.Background(), &out, 30*time.Millisecond); err != nil {
		t.Fatalf("runCountdown: %v", err)
	}
	text := out.String()
	if !strings.HasPrefix(text, "Time remaining: 00:00") {
		t.Errorf("first line: %q", text)
	}
	if !strings.Contains(text, "Your timer has finished!") || strings.Contains(text, "cancelled") {
		t.Errorf("finish not printed: %q", text)
	}
}

func TestRunCountdown_Cancelled(t *testing.T) {
	a := testApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	if err := a.runCountdown(ctx, &out, time.Hour); err != nil {
		t.Fatalf("runCountdown: %v", err)
	}
	if !strings.Contains(out.String(), "Timer cancelled.") {
		t.Errorf("cancel not printed: %q", out.String())
	}
}

// fakeEngine returns a fixed text.
type fakeEngine struct {
	text   string
	closed int
}

func (e *fakeEngine) Init(ocr.Config) error { return nil }

func (e *fakeEngine) Recognize(ctx context.Context, path string) (string, error) {
	return e.text, nil
}

func (e *fakeEngine) Interrupt() {}

func (e *fakeEngine) Close() error {
	e.closed++
	return nil
}

func (e *fakeEngine) Info() ocr.Info { return ocr.Info{Backend: "fake", Initialized: true} }

func writeDisplay(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{20, 20, 20, 255})
		}
	}
	path := filepath.Join(t.TempDir(), "display.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunScan(t *testing.T) {
	a := testApp(t)
	engine := &fakeEngine{text: "0:45\n"}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	opts := scanOptions{label: "time", jsonOutput: true}
	if err := a.runScan(context.Background(), cmd, writeDisplay(t), opts, engine); err != nil {
		t.Fatalf("runScan: %v", err)
	}

	var got scanOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", out.String(), err)
	}
	if got.Text == nil || *got.Text != "0:45\n" || got.Duration != "00:45" || got.Millis != 45*60*1000 {
		t.Errorf("got %+v", got)
	}
	// No region given: the whole image is read.
	if got.Crop == nil || got.Crop.Width != 60 || got.Crop.Height != 30 {
		t.Errorf("crop: %+v", got.Crop)
	}
	if filepath.Dir(got.Crop.Path) != a.cfg.CacheDir {
		t.Errorf("crop outside cache: %s", got.Crop.Path)
	}
	if engine.closed != 1 {
		t.Errorf("engine closed %d times, want 1", engine.closed)
	}
}

func TestRunScan_Errors(t *testing.T) {
	a := testApp(t)
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	if err := a.runScan(context.Background(), cmd, "/no/such/photo.jpg", scanOptions{label: "time"}, &fakeEngine{}); err == nil {
		t.Error("expected error for missing image")
	}

	opts := scanOptions{label: "time", start: true}
	err := a.runScan(context.Background(), cmd, writeDisplay(t), opts, &fakeEngine{text: "--:--"})
	if err == nil || !strings.Contains(err.Error(), "no duration") {
		t.Errorf("got %v, want no duration error", err)
	}
}

func TestInstallModel(t *testing.T) {
	src := filepath.Join(t.TempDir(), "7seg.traineddata")
	if err := os.WriteFile(src, []byte("model"), 0644); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "tessdata")

	out, err := execute(t, "install-model", src, "--tessdata", dir)
	if err != nil {
		t.Fatalf("install-model: %v", err)
	}
	want := filepath.Join(dir, "7seg.traineddata")
	if strings.TrimSpace(out) != want {
		t.Errorf("output %q, want %q", out, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("model not installed: %v", err)
	}
}
