package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDirectory is cleaned under the base dir unless
// exclude_default_directories is set
const DefaultDirectory = "target"

type FilesetCfg struct {
	Directory          string   `yaml:"directory" json:"directory"`
	Includes           []string `yaml:"includes" json:"includes"`
	Excludes           []string `yaml:"excludes" json:"excludes"`
	FollowSymlinks     bool     `yaml:"follow_symlinks" json:"follow_symlinks"`
	UseDefaultExcludes *bool    `yaml:"use_default_excludes" json:"use_default_excludes"` // nil means true
}

// DefaultExcludes reports whether SCM metadata is protected in this fileset
func (f FilesetCfg) DefaultExcludes() bool {
	return f.UseDefaultExcludes == nil || *f.UseDefaultExcludes
}

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                   // Empty disables file logging
	MaxSizeMB    int    `yaml:"max_size_mb" json:"max_size_mb"`     // Rotate after this size
	MaxBackups   int    `yaml:"max_backups" json:"max_backups"`     // Rotated files to keep
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep rotated logs
}

type MetricsCfg struct {
	Textfile string `yaml:"textfile" json:"textfile"` // node_exporter textfile target
}

type Config struct {
	BaseDir                   string       `yaml:"base_dir" json:"base_dir"`
	Directories               []string     `yaml:"directories" json:"directories"`
	ExcludeDefaultDirectories bool         `yaml:"exclude_default_directories" json:"exclude_default_directories"`
	Filesets                  []FilesetCfg `yaml:"filesets" json:"filesets"`
	FollowSymlinks            bool         `yaml:"follow_symlinks" json:"follow_symlinks"`
	FailOnError               bool         `yaml:"fail_on_error" json:"fail_on_error"`
	RetryOnError              bool         `yaml:"retry_on_error" json:"retry_on_error"`
	RetryDelayMillis          int          `yaml:"retry_delay_ms" json:"retry_delay_ms"`
	Skip                      bool         `yaml:"skip" json:"skip"`
	Verbose                   bool         `yaml:"verbose" json:"verbose"`
	AllowedRoots              []string     `yaml:"allowed_roots" json:"allowed_roots"`     // Empty allows any non-protected root
	ProtectedPaths            []string     `yaml:"protected_paths" json:"protected_paths"` // Added to the built-in list
	DatabasePath              string       `yaml:"database_path" json:"database_path"`     // Empty disables the audit trail
	ReportPath                string       `yaml:"report_path" json:"report_path"`         // Empty disables the JSON report
	Logging                   LoggingCfg   `yaml:"logging" json:"logging"`
	Metrics                   MetricsCfg   `yaml:"metrics" json:"metrics"`
}

var (
	errNoTargets       = errors.New("configuration must specify directories or filesets")
	errInvalidPath     = errors.New("path must be absolute")
	errEmptyDirectory  = errors.New("directory cannot be empty")
	errNegativeDelay   = errors.New("retry_delay_ms cannot be negative")
	errNegativeLogSize = errors.New("logging sizes cannot be negative")
)

// Default returns the configuration used when a key is absent
func Default() *Config {
	return &Config{
		FailOnError: true,
	}
}

func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes the config file without applying defaults, so callers can
// override values before the single call to Validate
func Read(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return decode(f)
}

func decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Validate applies defaults and resolves paths on a config built in code
// or returned by Read. Calling it again adds nothing new, but it never
// removes the default directory once added.
func (c *Config) Validate() error {
	return c.validateAndDefault()
}

func (c *Config) validateAndDefault() error {
	if c.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve base_dir: %w", err)
		}
		c.BaseDir = wd
	}
	base, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return fmt.Errorf("base_dir: %w", err)
	}
	c.BaseDir = filepath.Clean(base)

	if c.RetryDelayMillis < 0 {
		return errNegativeDelay
	}
	if c.RetryDelayMillis == 0 {
		c.RetryDelayMillis = 50
	}

	// Set defaults for logging
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.RotationDays < 0 {
		return errNegativeLogSize
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30
	}

	dirs := make([]string, 0, len(c.Directories)+1)
	if !c.ExcludeDefaultDirectories {
		dirs = append(dirs, filepath.Join(c.BaseDir, DefaultDirectory))
	}
	for _, d := range c.Directories {
		rd, err := c.resolve(d)
		if err != nil {
			return fmt.Errorf("directories: %w", err)
		}
		if !contains(dirs, rd) {
			dirs = append(dirs, rd)
		}
	}
	c.Directories = dirs

	for i := range c.Filesets {
		rd, err := c.resolve(c.Filesets[i].Directory)
		if err != nil {
			return fmt.Errorf("filesets[%d]: %w", i, err)
		}
		c.Filesets[i].Directory = rd
	}

	if len(c.Directories) == 0 && len(c.Filesets) == 0 && !c.Skip {
		return errNoTargets
	}

	cleaned := make([]string, 0, len(c.AllowedRoots))
	for _, p := range c.AllowedRoots {
		cp, err := c.resolve(p)
		if err != nil {
			return fmt.Errorf("allowed_roots: %w", err)
		}
		cleaned = append(cleaned, cp)
	}
	c.AllowedRoots = cleaned

	for _, p := range []*string{&c.DatabasePath, &c.ReportPath, &c.Metrics.Textfile, &c.Logging.File} {
		if *p == "" {
			continue
		}
		rp, err := c.resolve(*p)
		if err != nil {
			return err
		}
		*p = rp
	}

	return nil
}

// resolve makes p absolute against the base dir
func (c *Config) resolve(p string) (string, error) {
	if p == "" {
		return "", errEmptyDirectory
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.BaseDir, p)
	}
	return cleanAbsolute(p)
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMillis) * time.Millisecond
}
