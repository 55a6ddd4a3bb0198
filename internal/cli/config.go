package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/edgemetrics/internal/backup"
	"github.com/mesh-intelligence/edgemetrics/internal/logging"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "EDGEMETRICS"
)

// Config keys.
const (
	cfgKeyBackend         = "backend"
	cfgKeyDataDir         = "data_dir"
	cfgKeyQuotaBytes      = "quota_bytes"
	cfgKeySyncStrategy    = "sync_strategy"
	cfgKeyBatchSize       = "batch_size"
	cfgKeyBatchInterval   = "batch_interval"
	cfgKeyBackupRetention = "backup.retention"
	cfgKeyBackupInterval  = "backup.interval"
	cfgKeyLogLevel        = "log.level"
	cfgKeyLogFormat       = "log.format"
	cfgKeyMetricsAddr     = "metrics.addr"
)

// envKeys are the config keys that EDGEMETRICS_* variables override.
// data_dir is left out: EDGEMETRICS_DATA_DIR ranks below config.yaml.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyQuotaBytes,
	cfgKeySyncStrategy,
	cfgKeyBatchSize,
	cfgKeyBatchInterval,
	cfgKeyBackupRetention,
	cfgKeyBackupInterval,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
	cfgKeyMetricsAddr,
}

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend      string        `yaml:"backend"`
	DataDir      string        `yaml:"data_dir,omitempty"`
	QuotaBytes   int64         `yaml:"quota_bytes"`
	SyncStrategy string        `yaml:"sync_strategy"`
	Backup       backupSection `yaml:"backup"`
	Log          logSection    `yaml:"log"`
}

type backupSection struct {
	Retention int    `yaml:"retention"`
	Interval  string `yaml:"interval"`
}

type logSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaultConfigFile returns the config written on first run.
func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Backend:      types.BackendSQLite,
		DataDir:      dataDir,
		QuotaBytes:   types.DefaultQuotaBytes,
		SyncStrategy: types.SyncImmediate,
		Backup: backupSection{
			Retention: backup.DefaultRetention,
			Interval:  backup.DefaultInterval.String(),
		},
		Log: logSection{Level: "info", Format: logging.FormatJSON},
	}
}

// settings is the resolved configuration for one invocation.
type settings struct {
	Backend       string
	DataDir       string
	QuotaBytes    int64
	SyncStrategy  string
	BatchSize     int
	BatchInterval int
	Backup        backup.Config
	LogLevel      string
	LogFormat     string
	MetricsAddr   string
}

// storeConfig returns the item store config for dataDir.
func (s settings) storeConfig(dataDir string) types.Config {
	return types.Config{
		Backend:    s.Backend,
		DataDir:    dataDir,
		QuotaBytes: s.QuotaBytes,
		SQLiteConfig: types.SQLiteConfig{
			SyncStrategy:  s.SyncStrategy,
			BatchSize:     s.BatchSize,
			BatchInterval: s.BatchInterval,
		},
	}
}

// loadSettings reads config.yaml from configDir, creating the directory and
// a default file on first run, and applies EDGEMETRICS_* overrides. A
// non-empty seedDataDir is recorded as data_dir in a newly created file.
func loadSettings(configDir, seedDataDir string) (settings, error) {
	v, err := loadConfig(configDir, seedDataDir)
	if err != nil {
		return settings{}, err
	}
	return settings{
		Backend:       v.GetString(cfgKeyBackend),
		DataDir:       v.GetString(cfgKeyDataDir),
		QuotaBytes:    v.GetInt64(cfgKeyQuotaBytes),
		SyncStrategy:  v.GetString(cfgKeySyncStrategy),
		BatchSize:     v.GetInt(cfgKeyBatchSize),
		BatchInterval: v.GetInt(cfgKeyBatchInterval),
		Backup: backup.Config{
			Retention: v.GetInt(cfgKeyBackupRetention),
			Interval:  v.GetDuration(cfgKeyBackupInterval),
		},
		LogLevel:    v.GetString(cfgKeyLogLevel),
		LogFormat:   v.GetString(cfgKeyLogFormat),
		MetricsAddr: v.GetString(cfgKeyMetricsAddr),
	}, nil
}

// loadConfig reads config.yaml from the config directory using Viper.
// A missing config.yaml is not an error.
func loadConfig(configDir, seedDataDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir, seedDataDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyQuotaBytes, types.DefaultQuotaBytes)
	v.SetDefault(cfgKeySyncStrategy, types.SyncImmediate)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyBatchInterval, types.DefaultBatchInterval)
	v.SetDefault(cfgKeyBackupRetention, backup.DefaultRetention)
	v.SetDefault(cfgKeyBackupInterval, backup.DefaultInterval)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, logging.FormatJSON)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir, dataDir string) error {
	return writeConfigIfMissing(filepath.Join(configDir, configFileExt), dataDir)
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# edgemetrics configuration\n" +
		"# Every key can be overridden by EDGEMETRICS_<KEY> (dots become underscores).\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}
