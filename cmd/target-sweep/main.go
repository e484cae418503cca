package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"target-sweep/internal/config"
	"target-sweep/internal/database"
	"target-sweep/internal/exitcodes"
	"target-sweep/internal/logging"
	"target-sweep/internal/metrics"
	"target-sweep/internal/runner"
)

var (
	app = kingpin.New("target-sweep", "Delete build output directories and filesets.")

	configPath     = app.Flag("config", "Path to configuration file").Short('c').String()
	baseDir        = app.Flag("base-dir", "Project directory relative paths resolve against (ignored with --config)").String()
	dirs           = app.Flag("dir", "Additional directory to delete; repeatable").Strings()
	excludeDefault = app.Flag("exclude-default", "Do not delete the default target directory").Bool()
	followSymlinks = app.Flag("follow-symlinks", "Descend into symbolic links to directories").Bool()
	failOnError    = app.Flag("fail-on-error", "Abort on the first failed deletion").Default("true").Bool()
	retryOnError   = app.Flag("retry-on-error", "Retry a failed deletion once").Bool()
	skip           = app.Flag("skip", "Skip the clean entirely").Bool()
	verbose        = app.Flag("verbose", "Log every deleted entry").Short('v').Bool()
	dbPath         = app.Flag("db", "Path to the deletion history database").String()
	reportPath     = app.Flag("report", "Write a JSON run report to this path").String()
	metricsFile    = app.Flag("metrics-file", "Write Prometheus metrics to this textfile").String()

	// set reports which boolean flags appeared on the command line
	set = map[string]bool{}
)

func init() {
	app.Version("target-sweep 1.0.0")
	for _, name := range []string{"exclude-default", "follow-symlinks", "fail-on-error", "retry-on-error", "skip", "verbose"} {
		name := name
		app.GetFlag(name).Action(func(*kingpin.ParseContext) error {
			set[name] = true
			return nil
		})
	}
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logging.New()

	cfg, err := loadConfig()
	if err != nil {
		logger.Printf("ERROR: Invalid configuration: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}
	logger = logging.NewWithConfig(cfg)

	metrics.Init()

	var db *database.DeletionDB
	if cfg.DatabasePath != "" {
		db, err = database.NewDeletionDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, stopping after the current target...", sig)
		cancel()
	}()

	_, err = runner.RunOnceWithDB(ctx, cfg, logger, db)
	cancel()

	if db != nil {
		if cerr := db.Close(); cerr != nil {
			logger.Printf("ERROR: Failed to close database: %v", cerr)
		}
	}

	code := exitCode(err)
	if code != exitcodes.Success {
		logger.Printf("ERROR: %v", err)
	}
	os.Exit(code)
}

// loadConfig reads the config file, or starts from defaults, and applies
// command-line overrides before defaults are filled in
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Read(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if *baseDir != "" {
		cfg.BaseDir = *baseDir
	}

	cfg.Directories = append(cfg.Directories, *dirs...)
	if set["exclude-default"] {
		cfg.ExcludeDefaultDirectories = *excludeDefault
	}
	if set["follow-symlinks"] {
		cfg.FollowSymlinks = *followSymlinks
	}
	if set["fail-on-error"] {
		cfg.FailOnError = *failOnError
	}
	if set["retry-on-error"] {
		cfg.RetryOnError = *retryOnError
	}
	if set["skip"] {
		cfg.Skip = *skip
	}
	if set["verbose"] {
		cfg.Verbose = *verbose
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *reportPath != "" {
		cfg.ReportPath = *reportPath
	}
	if *metricsFile != "" {
		cfg.Metrics.Textfile = *metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.Is(err, runner.ErrInvalidTarget):
		return exitcodes.InvalidConfig
	case errors.Is(err, runner.ErrUnsafeTarget):
		return exitcodes.SafetyViolation
	case errors.Is(err, runner.ErrCleanFailed):
		return exitcodes.CleanFailed
	default:
		return exitcodes.RuntimeError
	}
}
