package cfg

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"loan-approval/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelsDir         string
	ClassifierFile    string
	RegressorFile     string
	ApprovalThreshold float64
	WebPort           int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	APITimeout        time.Duration
	LogLevel          string
}

type ConfigFile struct {
	Models struct {
		Dir            string `yaml:"dir"`
		ClassifierFile string `yaml:"classifierFile"`
		RegressorFile  string `yaml:"regressorFile"`
	} `yaml:"models"`

	Decision struct {
		ApprovalThreshold float64 `yaml:"approvalThreshold"`
	} `yaml:"decision"`

	Web struct {
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
	} `yaml:"web"`

	Client struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"client"`

	System struct {
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if err := loadDotEnv(common.DotEnvFile); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv loads variables from path when it exists. Variables already set
// in the process environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout, err := time.ParseDuration(config.Web.ReadTimeout)
	if err != nil {
		readTimeout = 10 * time.Second
	}
	writeTimeout, err := time.ParseDuration(config.Web.WriteTimeout)
	if err != nil {
		writeTimeout = 10 * time.Second
	}
	apiTimeout, err := time.ParseDuration(config.Client.Timeout)
	if err != nil {
		apiTimeout = 5 * time.Second
	}

	settings := Settings{
		ModelsDir:         getEnvOrDefault(common.EnvModelsDir, orDefault(config.Models.Dir, common.DefaultModelsDir)),
		ClassifierFile:    getEnvOrDefault(common.EnvClassifierFile, orDefault(config.Models.ClassifierFile, common.DefaultClassifierFile)),
		RegressorFile:     getEnvOrDefault(common.EnvRegressorFile, orDefault(config.Models.RegressorFile, common.DefaultRegressorFile)),
		ApprovalThreshold: getFloatFromEnvOrConfig(common.EnvApprovalThreshold, config.Decision.ApprovalThreshold, common.DefaultApprovalThreshold),
		WebPort:           getIntFromEnvOrConfig(common.EnvWebPort, config.Web.Port, common.DefaultWebPort),
		ReadTimeout:       getDurationOrDefault(common.EnvReadTimeout, readTimeout),
		WriteTimeout:      getDurationOrDefault(common.EnvWriteTimeout, writeTimeout),
		APITimeout:        getDurationOrDefault(common.EnvAPITimeout, apiTimeout),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelsDir:         getEnvOrDefault(common.EnvModelsDir, common.DefaultModelsDir),
		ClassifierFile:    getEnvOrDefault(common.EnvClassifierFile, common.DefaultClassifierFile),
		RegressorFile:     getEnvOrDefault(common.EnvRegressorFile, common.DefaultRegressorFile),
		ApprovalThreshold: getFloatOrDefault(common.EnvApprovalThreshold, common.DefaultApprovalThreshold),
		WebPort:           getIntOrDefault(common.EnvWebPort, common.DefaultWebPort),
		ReadTimeout:       getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:      getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
		APITimeout:        getDurationOrDefault(common.EnvAPITimeout, 5*time.Second),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// ModelsPath returns the absolute models directory. Relative directories are
// resolved against the working directory for every entry point.
func (s *Settings) ModelsPath() (string, error) {
	if filepath.IsAbs(s.ModelsDir) {
		return filepath.Clean(s.ModelsDir), nil
	}
	abs, err := filepath.Abs(s.ModelsDir)
	if err != nil {
		return "", fmt.Errorf("resolve models dir %s: %w", s.ModelsDir, err)
	}
	return abs, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if strings.TrimSpace(v) == "" {
		return defaultValue
	}
	return v
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if strings.TrimSpace(settings.ModelsDir) == "" {
		return fmt.Errorf("models directory cannot be empty")
	}
	if settings.ClassifierFile == "" || settings.RegressorFile == "" {
		return fmt.Errorf("classifier and regressor file names are required")
	}
	if settings.ClassifierFile == settings.RegressorFile {
		return fmt.Errorf("classifier and regressor must be different files, both are %s", settings.ClassifierFile)
	}

	if math.IsNaN(settings.ApprovalThreshold) ||
		settings.ApprovalThreshold <= common.MinApprovalThreshold || settings.ApprovalThreshold >= common.MaxApprovalThreshold {
		return fmt.Errorf("approval threshold must be between 0 and 1 (exclusive), got %f", settings.ApprovalThreshold)
	}

	if settings.WebPort < common.MinWebPort || settings.WebPort > common.MaxWebPort {
		return fmt.Errorf("web port must be between %d and %d, got %d", common.MinWebPort, common.MaxWebPort, settings.WebPort)
	}

	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}
	if settings.APITimeout < 100*time.Millisecond || settings.APITimeout > time.Minute {
		return fmt.Errorf("API timeout must be between 100ms and 1m, got %v", settings.APITimeout)
	}

	switch strings.ToLower(settings.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	return nil
}
