package ocr

import (
	"os"
	"path/filepath"
	"testing"
)

func TestModelPath(t *testing.T) {
	got := ModelPath("/data/tessdata", "7seg")
	if got != filepath.Join("/data/tessdata", "7seg.traineddata") {
		t.Errorf("ModelPath = %q", got)
	}
}

func TestResolveTessdataDir_Configured(t *testing.T) {
	dir := fakeModelDir(t, "7seg")

	got, err := ResolveTessdataDir(dir, "7seg")
	if err != nil {
		t.Fatalf("ResolveTessdataDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("got %q, want %q", got, dir)
	}
}

func TestResolveTessdataDir_ConfiguredMissingModel(t *testing.T) {
	if _, err := ResolveTessdataDir(t.TempDir(), "7seg"); err == nil {
		t.Error("expected error for directory without model")
	}
}

func TestResolveTessdataDir_Env(t *testing.T) {
	prefix := t.TempDir()
	tessdata := filepath.Join(prefix, "tessdata")
	if err := os.MkdirAll(tessdata, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ModelPath(tessdata, "zz_test_lang"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TESSDATA_PREFIX", prefix)

	got, err := ResolveTessdataDir("", "zz_test_lang")
	if err != nil {
		t.Fatalf("ResolveTessdataDir failed: %v", err)
	}
	if got != tessdata {
		t.Errorf("got %q, want %q", got, tessdata)
	}
}

func TestInstallModel(t *testing.T) {
	src := filepath.Join(t.TempDir(), "7seg.traineddata")
	if err := os.WriteFile(src, []byte("seven segment model"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "nested", "tessdata")

	path, err := InstallModel(src, dst)
	if err != nil {
		t.Fatalf("InstallModel failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("installed model unreadable: %v", err)
	}
	if string(data) != "seven segment model" {
		t.Errorf("installed content = %q", data)
	}

	// Same size: left untouched.
	stat1, _ := os.Stat(path)
	if _, err := InstallModel(src, dst); err != nil {
		t.Fatalf("second InstallModel failed: %v", err)
	}
	stat2, _ := os.Stat(path)
	if !stat1.ModTime().Equal(stat2.ModTime()) {
		t.Error("existing model should not be rewritten")
	}
}

func TestInstallModel_MissingSource(t *testing.T) {
	if _, err := InstallModel("/nonexistent/7seg.traineddata", t.TempDir()); err == nil {
		t.Error("expected error for missing source")
	}
}
