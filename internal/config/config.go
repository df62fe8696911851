// Package config loads timer-ocr settings from a YAML file, the
// environment and a .env file, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/timer-ocr-mcp/internal/imaging"
	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TIMER_OCR_"

// SearchPaths are tried in order when no config file is given.
var SearchPaths = []string{"timer-ocr.yaml", ".timer-ocr.yaml"}

// Config is the full service configuration.
type Config struct {
	OCR          ocr.Config                `yaml:"ocr"`
	CacheDir     string                    `yaml:"cache_dir"`
	CacheMaxAge  time.Duration             `yaml:"cache_max_age"`
	Preprocess   imaging.PreprocessOptions `yaml:"preprocess"`
	TickInterval time.Duration             `yaml:"tick_interval"`
	Log          logger.LogConfig          `yaml:"log"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		OCR: ocr.Config{
			Language:   "7seg",
			EngineMode: ocr.OEMLSTMOnly,
		},
		CacheDir:     defaultCacheDir(),
		CacheMaxAge:  24 * time.Hour,
		Preprocess:   imaging.DefaultPreprocess(),
		TickInterval: time.Second,
		Log:          logger.DefaultConfig(),
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "timer-ocr-mcp")
	}
	return filepath.Join(os.TempDir(), "timer-ocr-mcp")
}

// Load reads configuration from path. With an empty path it tries
// SearchPaths and falls back to defaults when none exists. An explicit path
// that cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		for _, name := range SearchPaths {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// LoadEnv reads the given .env files (".env" when none are given) into the
// process environment without overriding variables already set, then
// applies TIMER_OCR_* overrides to cfg. Missing .env files are ignored.
func LoadEnv(cfg *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return cfg.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
		return nil
	}

	str("TESSDATA_DIR", &c.OCR.TessdataDir)
	str("LANGUAGE", &c.OCR.Language)
	str("CACHE_DIR", &c.CacheDir)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_OUTPUT", &c.Log.Output)
	str("PREPROCESS_INVERT", &c.Preprocess.Invert)

	if v, ok := lookup(EnvPrefix + "ENGINE_MODE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sENGINE_MODE: %w", EnvPrefix, err)
		}
		c.OCR.EngineMode = ocr.EngineMode(n)
	}
	if v, ok := lookup(EnvPrefix + "PREPROCESS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sPREPROCESS: %w", EnvPrefix, err)
		}
		c.Preprocess.Enabled = b
	}

	if err := dur("CACHE_MAX_AGE", &c.CacheMaxAge); err != nil {
		return err
	}
	return dur("TICK_INTERVAL", &c.TickInterval)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.OCR.Language) == "" {
		errs = append(errs, errors.New("ocr.language is required"))
	}
	if !c.OCR.EngineMode.Valid() {
		errs = append(errs, fmt.Errorf("ocr.engine_mode %d is out of range 0-3", int(c.OCR.EngineMode)))
	}
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache_dir is required"))
	}
	if c.CacheMaxAge < 0 {
		errs = append(errs, errors.New("cache_max_age must not be negative"))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("tick_interval must be positive"))
	}
	switch c.Preprocess.Invert {
	case "", imaging.InvertAuto, imaging.InvertAlways, imaging.InvertNever:
	default:
		errs = append(errs, fmt.Errorf("preprocess.invert %q must be auto, always or never", c.Preprocess.Invert))
	}
	if c.Preprocess.Threshold < 0 || c.Preprocess.Threshold > 255 {
		errs = append(errs, fmt.Errorf("preprocess.threshold %d is out of range 0-255", c.Preprocess.Threshold))
	}
	if c.Preprocess.Contrast < -1 || c.Preprocess.Contrast > 1 {
		errs = append(errs, fmt.Errorf("preprocess.contrast %g is out of range -1..1", c.Preprocess.Contrast))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
