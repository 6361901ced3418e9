package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config is the persisted form of config.json.
type Config struct {
	PCName              string `mapstructure:"pc_name"`
	DeviceID            string `mapstructure:"device_id"`
	ServerPort          int    `mapstructure:"server_port"`
	ServerPortInsecure  int    `mapstructure:"server_port_insecure"`
	DiscoveryPort       int    `mapstructure:"discovery_port"`
	RequireApproval     bool   `mapstructure:"require_approval"`
	AutoApprove         bool   `mapstructure:"auto_approve"`
	MaxClients          int    `mapstructure:"max_clients"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	AuditEnabled    bool `mapstructure:"audit_enabled"`
	AuditMaxSizeMB  int  `mapstructure:"audit_max_size_mb"`
	AuditMaxBackups int  `mapstructure:"audit_max_backups"`
}

// Default returns a Config populated with the same defaults the reference
// implementation ships with (ports 8765/8766/37020).
func Default() *Config {
	return &Config{
		PCName:             defaultPCName(),
		ServerPort:         8765,
		ServerPortInsecure: 8766,
		DiscoveryPort:      37020,
		RequireApproval:    true,
		AutoApprove:        false,
		MaxClients:         10,
		LogLevel:           "info",
		LogFormat:          "text",
		LogMaxSizeMB:       50,
		LogMaxBackups:      3,
		AuditEnabled:       true,
		AuditMaxSizeMB:     50,
		AuditMaxBackups:    3,
	}
}

func defaultPCName() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "nexremote-pc"
	}
	return h
}

// Load reads config.json from cfgFile, or from the default data directory
// if cfgFile is empty. Missing files are not an error; Default() is returned.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("json")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(GetDataDir())
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("NEXREMOTE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config.json: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal config.json: %w", err)
	}

	if cfg.DeviceID == "" {
		cfg.DeviceID = newDeviceID()
	}

	cfg.Validate()

	return cfg, nil
}

// Save writes cfg to config.json under the default data directory.
func Save(cfg *Config) error {
	return SaveTo(cfg, filepath.Join(GetDataDir(), "config.json"))
}

// SaveTo writes cfg as JSON to the given path.
func SaveTo(cfg *Config, cfgPath string) error {
	v := viper.New()
	v.SetConfigType("json")
	v.Set("pc_name", cfg.PCName)
	v.Set("device_id", cfg.DeviceID)
	v.Set("server_port", cfg.ServerPort)
	v.Set("server_port_insecure", cfg.ServerPortInsecure)
	v.Set("discovery_port", cfg.DiscoveryPort)
	v.Set("require_approval", cfg.RequireApproval)
	v.Set("auto_approve", cfg.AutoApprove)
	v.Set("max_clients", cfg.MaxClients)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)
	v.Set("log_max_size_mb", cfg.LogMaxSizeMB)
	v.Set("log_max_backups", cfg.LogMaxBackups)
	v.Set("audit_enabled", cfg.AuditEnabled)
	v.Set("audit_max_size_mb", cfg.AuditMaxSizeMB)
	v.Set("audit_max_backups", cfg.AuditMaxBackups)

	dir := filepath.Dir(cfgPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("config: create config dir: %w", err)
		}
	}

	if err := v.WriteConfigAs(cfgPath); err != nil {
		return fmt.Errorf("config: write config.json: %w", err)
	}

	return os.Chmod(cfgPath, 0600)
}

// GetDataDir returns the platform-specific per-user application data
// directory that config.json, trusted_devices.json, certs/ and logs/ live
// under.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "NexRemote")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "NexRemote")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "nexremote")
	}
}

// CertsDir returns the directory holding the self-signed server certificate.
func CertsDir() string {
	return filepath.Join(GetDataDir(), "certs")
}

// LogsDir returns the directory holding logs/audit.log.
func LogsDir() string {
	return filepath.Join(GetDataDir(), "logs")
}

// TrustedDevicesPath returns the path to trusted_devices.json.
func TrustedDevicesPath() string {
	return filepath.Join(GetDataDir(), "trusted_devices.json")
}

func newDeviceID() string {
	return generateID()
}
