// Package config reads the sync settings from viper, which layers flags,
// environment variables, .env files, and the config file.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentstation/orgsync/internal/sources/feishu"
	"github.com/agentstation/orgsync/internal/targets/ruoyiapi"
	"github.com/agentstation/orgsync/internal/targets/ruoyidb"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

// Target kinds.
const (
	TargetDB  = "db"
	TargetAPI = "api"
)

// Config holds everything a sync run needs to reach the source, the
// target, and the operators.
type Config struct {
	FeishuAppID     string
	FeishuAppSecret string
	FeishuBaseURL   string
	Sequential      bool

	OutputDir string
	Target    string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RuoYiBaseURL  string
	RuoYiUsername string
	RuoYiPassword string

	DefaultPassword     string
	DefaultPasswordHash string

	NotifyWebhookURL string
	MetricsFile      string
}

// GetString reads key from viper, falling back to the process environment
// for keys viper was not told about.
func GetString(key string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return os.Getenv(key)
}

// GetBool reads a boolean key the same way GetString does.
func GetBool(key string) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Load reads the sync settings.
func Load() *Config {
	viper.AutomaticEnv()
	viper.SetDefault("FEISHU_BASE_URL", constants.FeishuBaseURL)
	viper.SetDefault("OUTPUT_DIR", constants.DefaultOutputDir)
	viper.SetDefault("TARGET", TargetDB)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DEFAULT_USER_PASSWORD", constants.DefaultUserPassword)

	return &Config{
		FeishuAppID:         GetString("FEISHU_APP_ID"),
		FeishuAppSecret:     GetString("FEISHU_APP_SECRET"),
		FeishuBaseURL:       GetString("FEISHU_BASE_URL"),
		Sequential:          GetBool("SEQUENTIAL_MODE"),
		OutputDir:           GetString("OUTPUT_DIR"),
		Target:              strings.ToLower(GetString("TARGET")),
		DBHost:              GetString("DB_HOST"),
		DBPort:              viper.GetInt("DB_PORT"),
		DBUser:              GetString("DB_USER"),
		DBPassword:          GetString("DB_PASSWORD"),
		DBName:              GetString("DB_NAME"),
		RuoYiBaseURL:        GetString("RUOYI_BASE_URL"),
		RuoYiUsername:       GetString("RUOYI_USERNAME"),
		RuoYiPassword:       GetString("RUOYI_PASSWORD"),
		DefaultPassword:     GetString("DEFAULT_USER_PASSWORD"),
		DefaultPasswordHash: GetString("DEFAULT_USER_PASSWORD_HASH"),
		NotifyWebhookURL:    GetString("NOTIFY_WEBHOOK_URL"),
		MetricsFile:         GetString("METRICS_FILE"),
	}
}

// Feishu returns the source settings.
func (c *Config) Feishu() feishu.Config {
	cfg := feishu.DefaultConfig()
	cfg.AppID = c.FeishuAppID
	cfg.AppSecret = c.FeishuAppSecret
	if c.FeishuBaseURL != "" {
		cfg.BaseURL = c.FeishuBaseURL
	}
	cfg.Sequential = c.Sequential
	return cfg
}

// Database returns the database target settings.
func (c *Config) Database() ruoyidb.Config {
	return ruoyidb.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
	}
}

// API returns the REST target settings.
func (c *Config) API() ruoyiapi.Config {
	return ruoyiapi.Config{
		BaseURL:  c.RuoYiBaseURL,
		Username: c.RuoYiUsername,
		Password: c.RuoYiPassword,
	}
}

// ValidateSource checks the source credentials.
func (c *Config) ValidateSource() error {
	return c.Feishu().Validate()
}

// ValidateTarget checks the settings of the selected target.
func (c *Config) ValidateTarget() error {
	switch c.Target {
	case TargetDB:
		return c.Database().Validate()
	case TargetAPI:
		return c.API().Validate()
	default:
		return errors.NewConfigError("target", "TARGET must be db or api, got "+c.Target, errors.ErrInvalidInput)
	}
}

// Validate checks everything a sync needs before any network activity.
func (c *Config) Validate() error {
	if err := c.ValidateSource(); err != nil {
		return err
	}
	return c.ValidateTarget()
}
