// Package config loads postal settings from a YAML file and the
// environment.
//
// Resolution order, later wins:
//
//	NewConfig defaults
//	the YAML file (explicit path, $POSTAL_CONFIG, or ~/.config/postal/config.yaml)
//	$LIBPOSTAL_DATA_DIR, $POSTAL_LANGUAGES, $POSTAL_LOG_LEVEL, $POSTAL_DECODE
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffix/stringset"
	"github.com/mitchellh/go-homedir"
	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

const (
	defaultCfgFile = "~/.config/postal/config.yaml"
	cfgEnvironVar  = "POSTAL_CONFIG"
	dataDirVar     = "LIBPOSTAL_DATA_DIR"
	languagesVar   = "POSTAL_LANGUAGES"
	logLevelVar    = "POSTAL_LOG_LEVEL"
	decodeVar      = "POSTAL_DECODE"
)

// Config holds the settings a postal Context and the CLI are built from.
type Config struct {
	// Filepath of the loaded configuration file, empty when none was read.
	Filepath string `yaml:"-" json:"-"`

	// DataDir overrides the libpostal data directory.
	DataDir string `yaml:"datadir,omitempty" json:"datadir,omitempty"`

	// Expand and Parse select the capabilities Init enables.
	Expand bool `yaml:"expand" json:"expand"`
	Parse  bool `yaml:"parse" json:"parse"`

	// Languages are the default language hints for expansion.
	Languages []string `yaml:"languages,omitempty" json:"languages,omitempty"`

	// Decode selects how invalid UTF-8 in results is handled.
	Decode postal.DecodePolicy `yaml:"decode" json:"decode"`

	Log LogConfig `yaml:"log" json:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development,omitempty" json:"development,omitempty"`
}

// NewConfig returns a configuration with both capabilities enabled.
func NewConfig() *Config {
	return &Config{
		Expand: true,
		Parse:  true,
		Decode: postal.DecodeStrict,
		Log:    LogConfig{Level: "warn"},
	}
}

// DefaultPath returns $POSTAL_CONFIG, or the per-user config file.
func DefaultPath() string {
	if p := env.Str(cfgEnvironVar); p != "" {
		return p
	}
	p, err := homedir.Expand(defaultCfgFile)
	if err != nil {
		return ""
	}
	return p
}

// Acquire builds the configuration from defaults, the file at path (or the
// default path when empty) and the environment. A missing default file is
// not an error; a missing explicit file is.
func Acquire(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		err := cfg.LoadSettings(path)
		if err != nil && (explicit || !stderrors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}

	if err := cfg.LoadEnvSettings(); err != nil {
		return nil, err
	}
	if err := cfg.CheckSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSettings reads a YAML file into c.
func (c *Config) LoadSettings(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return errors.InvalidConfig("failed to expand the configuration path", err)
	}
	absolutePath, err := filepath.Abs(expanded)
	if err != nil {
		return errors.InvalidConfig("failed to get absolute path of the configuration file", err)
	}

	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return errors.InvalidConfig("failed to load the configuration file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.InvalidConfig("error mapping configuration settings to internal values", err)
	}
	c.Filepath = absolutePath
	return nil
}

// LoadEnvSettings applies environment overrides.
func (c *Config) LoadEnvSettings() error {
	if env.Has(dataDirVar) {
		c.DataDir = env.Str(dataDirVar)
	}
	if env.Has(languagesVar) {
		c.Languages = strings.Split(env.Str(languagesVar), ",")
	}
	if env.Has(logLevelVar) {
		c.Log.Level = env.Str(logLevelVar)
	}
	if env.Has(decodeVar) {
		p, err := postal.ParseDecodePolicy(env.Str(decodeVar))
		if err != nil {
			return errors.InvalidConfig(decodeVar+" is invalid", err)
		}
		c.Decode = p
	}
	return nil
}

// CheckSettings validates and normalizes the configuration.
func (c *Config) CheckSettings() error {
	if !c.Expand && !c.Parse {
		return errors.InvalidConfig("at least one of expand or parse must be enabled", nil)
	}

	if c.DataDir != "" {
		dir, err := homedir.Expand(c.DataDir)
		if err != nil {
			return errors.InvalidConfig("failed to expand the data directory", err)
		}
		c.DataDir = dir
	}

	langs, err := normalizeLanguages(c.Languages)
	if err != nil {
		return err
	}
	c.Languages = langs

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.InvalidConfig("unknown log level "+c.Log.Level, err)
	}
	return nil
}

// normalizeLanguages trims, lowercases and deduplicates codes, keeping the
// first occurrence of each.
func normalizeLanguages(in []string) ([]string, error) {
	seen := stringset.New()

	var out []string
	for _, l := range in {
		if strings.IndexByte(l, 0) >= 0 {
			return nil, errors.InvalidConfig("language code contains a NUL byte", nil)
		}
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen.Has(l) {
			continue
		}
		seen.Insert(l)
		out = append(out, l)
	}
	return out, nil
}

// InitOptions maps the configuration onto postal.InitOptions.
func (c *Config) InitOptions() postal.InitOptions {
	return postal.InitOptions{
		DataDir: c.DataDir,
		Expand:  c.Expand,
		Parse:   c.Parse,
		Decode:  c.Decode,
	}
}

// Logger builds the zap logger described by c.Log.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.InvalidConfig("unknown log level "+c.Log.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
