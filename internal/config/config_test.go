package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDecodeDefaults verifies absent keys keep their defaults
func TestDecodeDefaults(t *testing.T) {
	base := t.TempDir()
	cfg, err := decode(strings.NewReader("base_dir: " + base + "\n"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if err := cfg.validateAndDefault(); err != nil {
		t.Fatalf("validateAndDefault failed: %v", err)
	}

	if !cfg.FailOnError {
		t.Error("fail_on_error should default to true")
	}
	if cfg.RetryOnError {
		t.Error("retry_on_error should default to false")
	}
	if cfg.RetryDelay() != 50*time.Millisecond {
		t.Errorf("Expected 50ms retry delay, got %v", cfg.RetryDelay())
	}
	expected := filepath.Join(base, DefaultDirectory)
	if len(cfg.Directories) != 1 || cfg.Directories[0] != expected {
		t.Errorf("Expected default directory %s, got %v", expected, cfg.Directories)
	}
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 || cfg.Logging.RotationDays != 30 {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
}

// TestLoadResolvesRelativePaths verifies relative entries are joined to base_dir
func TestLoadResolvesRelativePaths(t *testing.T) {
	base := t.TempDir()
	content := `
base_dir: ` + base + `
exclude_default_directories: true
directories:
  - build
  - ./out/../dist
filesets:
  - directory: target
    includes: ["**/*.class"]
    excludes: ["keep/**"]
    follow_symlinks: true
    use_default_excludes: false
fail_on_error: false
retry_on_error: true
retry_delay_ms: 5
database_path: history.db
metrics:
  textfile: metrics/sweep.prom
`
	path := filepath.Join(base, "sweep.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expectedDirs := []string{filepath.Join(base, "build"), filepath.Join(base, "dist")}
	if len(cfg.Directories) != 2 || cfg.Directories[0] != expectedDirs[0] || cfg.Directories[1] != expectedDirs[1] {
		t.Errorf("Expected %v, got %v", expectedDirs, cfg.Directories)
	}

	if len(cfg.Filesets) != 1 {
		t.Fatalf("Expected 1 fileset, got %d", len(cfg.Filesets))
	}
	fs := cfg.Filesets[0]
	if fs.Directory != filepath.Join(base, "target") {
		t.Errorf("Fileset directory not resolved: %s", fs.Directory)
	}
	if !fs.FollowSymlinks || fs.DefaultExcludes() {
		t.Errorf("Fileset flags not decoded: %+v", fs)
	}

	if cfg.FailOnError || !cfg.RetryOnError || cfg.RetryDelay() != 5*time.Millisecond {
		t.Errorf("Policy not decoded: fail=%v retry=%v delay=%v", cfg.FailOnError, cfg.RetryOnError, cfg.RetryDelay())
	}
	if cfg.DatabasePath != filepath.Join(base, "history.db") {
		t.Errorf("database_path not resolved: %s", cfg.DatabasePath)
	}
	if cfg.Metrics.Textfile != filepath.Join(base, "metrics", "sweep.prom") {
		t.Errorf("metrics textfile not resolved: %s", cfg.Metrics.Textfile)
	}
}

// TestValidationErrors verifies invalid configurations are rejected
func TestValidationErrors(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "no targets",
			cfg:     Config{BaseDir: base, ExcludeDefaultDirectories: true},
			wantErr: errNoTargets,
		},
		{
			name:    "empty fileset directory",
			cfg:     Config{BaseDir: base, Filesets: []FilesetCfg{{Directory: ""}}},
			wantErr: errEmptyDirectory,
		},
		{
			name:    "negative delay",
			cfg:     Config{BaseDir: base, RetryDelayMillis: -1},
			wantErr: errNegativeDelay,
		},
		{
			name:    "negative log size",
			cfg:     Config{BaseDir: base, Logging: LoggingCfg{MaxSizeMB: -1}},
			wantErr: errNegativeLogSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestSkipWithoutTargets verifies skip tolerates an empty target list
func TestSkipWithoutTargets(t *testing.T) {
	cfg := Config{BaseDir: t.TempDir(), ExcludeDefaultDirectories: true, Skip: true}
	if err := cfg.Validate(); err != nil {
		t.Errorf("skip config should validate, got %v", err)
	}
}

// TestValidateIdempotent verifies the default directory is not duplicated
func TestValidateIdempotent(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = t.TempDir()
	cfg.Directories = []string{"target", "extra"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("first Validate failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("second Validate failed: %v", err)
	}
	if len(cfg.Directories) != 2 {
		t.Errorf("Expected 2 directories after repeated validation, got %v", cfg.Directories)
	}
}

// TestUnknownKeyRejected verifies typos in the config file are reported
func TestUnknownKeyRejected(t *testing.T) {
	_, err := decode(strings.NewReader("fail_on_eror: false\n"))
	if err == nil {
		t.Error("Expected unknown key to be rejected")
	}
}

// TestReadLeavesDefaultsForValidate verifies overrides applied between
// Read and Validate decide the final target list
func TestReadLeavesDefaultsForValidate(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "sweep.yaml")
	if err := os.WriteFile(path, []byte("base_dir: "+base+"\ndirectories: [out]\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(cfg.Directories) != 1 || cfg.Directories[0] != "out" {
		t.Fatalf("Read should not resolve or default directories, got %v", cfg.Directories)
	}

	cfg.ExcludeDefaultDirectories = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(cfg.Directories) != 1 || cfg.Directories[0] != filepath.Join(base, "out") {
		t.Errorf("Expected only %s, got %v", filepath.Join(base, "out"), cfg.Directories)
	}
}
