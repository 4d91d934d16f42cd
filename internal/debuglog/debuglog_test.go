package debuglog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetupDisabledByDefault(t *testing.T) {
	t.Setenv(EnvVar, "")

	dir := t.TempDir()
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(old)

	logger, close, err := Setup()
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer close()

	logger.Info("should not be written anywhere")

	if _, err := os.Stat(filepath.Join(dir, LogFile)); !os.IsNotExist(err) {
		t.Fatalf("expected no log file when %s unset, stat err = %v", EnvVar, err)
	}
}

func TestSetupEnabledWritesFile(t *testing.T) {
	t.Setenv(EnvVar, "1")

	dir := t.TempDir()
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(old)

	logger, close, err := Setup()
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	logger.Info("hello")
	if err := close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty log file")
	}
}
