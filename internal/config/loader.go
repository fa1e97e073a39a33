package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "tarot-scan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "TAROT"

	// DotEnvFile is loaded from the working directory before the environment is read.
	DotEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance, which is where
// the CLI binds its flags.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on a caller-owned viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the first tarot-scan.yaml found on the search path (if any),
// the environment and the defaults, then validates the result.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile is Load with an explicit configuration file. An empty path
// searches the default locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFileWithoutValidation loads configuration without validating it.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// a missing file is fine when searching; defaults and env still apply
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// LoadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables maps TAROT_DETECTION_MIN_AREA_FRACTION style
// variables onto nested keys.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// the scanner tools have always read the device from SANE_DEVICE
	_ = l.v.BindEnv("scan.device", EnvPrefix+"_SCAN_DEVICE", "SANE_DEVICE")
}

// setDefaults registers every key so that environment variables are seen
// by Unmarshal.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)
	l.v.SetDefault("decks_dir", defaults.DecksDir)
	l.v.SetDefault("deck", defaults.Deck)

	l.v.SetDefault("detection.min_area_fraction", defaults.Detection.MinAreaFraction)
	l.v.SetDefault("detection.max_area_fraction", defaults.Detection.MaxAreaFraction)
	l.v.SetDefault("detection.epsilon_fraction", defaults.Detection.EpsilonFraction)
	l.v.SetDefault("detection.min_aspect", defaults.Detection.MinAspect)
	l.v.SetDefault("detection.max_aspect", defaults.Detection.MaxAspect)
	l.v.SetDefault("detection.row_threshold_fraction", defaults.Detection.RowThresholdFraction)

	l.v.SetDefault("preprocess.bilateral_diameter", defaults.Preprocess.BilateralDiameter)
	l.v.SetDefault("preprocess.sigma_color", defaults.Preprocess.SigmaColor)
	l.v.SetDefault("preprocess.sigma_space", defaults.Preprocess.SigmaSpace)
	l.v.SetDefault("preprocess.canny_low", defaults.Preprocess.CannyLow)
	l.v.SetDefault("preprocess.canny_high", defaults.Preprocess.CannyHigh)
	l.v.SetDefault("preprocess.dilate_kernel", defaults.Preprocess.DilateKernel)
	l.v.SetDefault("preprocess.dilate_iterations", defaults.Preprocess.DilateIterations)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.target_height", defaults.Output.TargetHeight)
	l.v.SetDefault("output.debug", defaults.Output.Debug)
	l.v.SetDefault("output.debug_box_color", defaults.Output.DebugBoxColor)
	l.v.SetDefault("output.debug_corner_color", defaults.Output.DebugCornerColor)
	l.v.SetDefault("output.debug_index_color", defaults.Output.DebugIndexColor)
	l.v.SetDefault("output.debug_label_color", defaults.Output.DebugLabelColor)

	l.v.SetDefault("scan.device", defaults.Scan.Device)
	l.v.SetDefault("scan.dpi", defaults.Scan.DPI)

	l.v.SetDefault("batch.recursive", defaults.Batch.Recursive)
	l.v.SetDefault("batch.include", defaults.Batch.Include)
	l.v.SetDefault("batch.exclude", defaults.Batch.Exclude)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)

	l.v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)
}

// WriteYAML renders cfg as YAML.
func WriteYAML(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// GenerateDefaultConfigFile writes the default configuration to filename
// (tarot-scan.yaml when empty). Existing files are not overwritten.
func GenerateDefaultConfigFile(filename string) (string, error) {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return "", err
	}
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G302: config file is meant to be world-readable
	if err != nil {
		return "", err
	}
	cfg := DefaultConfig()
	if err := WriteYAML(f, &cfg); err != nil {
		_ = f.Close()
		return "", err
	}
	return filename, f.Close()
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "tarot-scan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tarot-scan"))
	}

	return append(paths, "/etc/tarot-scan")
}
