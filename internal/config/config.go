package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	DatabasePath string `mapstructure:"database_path"`
	LogFormat    string `mapstructure:"log_format"` // production, development
	ActorID      string `mapstructure:"actor_id"`   // user the CLI acts as

	MailFrom     string `mapstructure:"mail_from"`
	LinksBaseURL string `mapstructure:"links_base_url"`

	CoolingOffFresherDays     int  `mapstructure:"cooling_off_fresher_days"`
	CoolingOffExperiencedDays int  `mapstructure:"cooling_off_experienced_days"`
	StrictTransitions         bool `mapstructure:"strict_transitions"`

	NATSURL             string `mapstructure:"nats_url"`
	MailSubject         string `mapstructure:"mail_subject"`
	NotificationSubject string `mapstructure:"notification_subject"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	TracingEndpoint string        `mapstructure:"tracing_endpoint"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

var AppConfig *Config

// Keys that `config set` accepts
var Keys = []string{
	"database_path", "log_format", "actor_id", "mail_from", "links_base_url",
	"cooling_off_fresher_days", "cooling_off_experienced_days", "strict_transitions",
	"nats_url", "mail_subject", "notification_subject",
	"redis_addr", "redis_password", "redis_db",
	"tracing_endpoint", "sweep_interval",
}

// Initialize loads or creates the configuration file. An empty path selects
// ~/.talentflow/config.yaml.
func Initialize(configFile string) error {
	if configFile == "" {
		configFile = GetConfigPath()
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return err
		}
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	setDefaults(viper.GetViper(), filepath.Dir(configFile))

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	AppConfig = &Config{}
	if err := viper.Unmarshal(AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// Defaults returns the configuration used when no file overrides anything.
// dataDir is where the database file lives.
func Defaults(dataDir string) *Config {
	v := viper.New()
	setDefaults(v, dataDir)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("database_path", filepath.Join(dataDir, "talentflow.db"))
	v.SetDefault("log_format", "production")
	v.SetDefault("actor_id", "")
	v.SetDefault("mail_from", "careers@talentflow.local")
	v.SetDefault("links_base_url", "http://localhost:3000")
	v.SetDefault("cooling_off_fresher_days", 60)
	v.SetDefault("cooling_off_experienced_days", 90)
	v.SetDefault("strict_transitions", true)
	v.SetDefault("nats_url", "")
	v.SetDefault("mail_subject", "talentflow.mail.send")
	v.SetDefault("notification_subject", "talentflow.notifications")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("tracing_endpoint", "")
	v.SetDefault("sweep_interval", 24*time.Hour)
}

// createDefaultConfig creates a default config file
func createDefaultConfig(path string) error {
	defaultConfig := `# Talentflow Configuration
# Database file (defaults to talentflow.db next to this file)
# database_path: /path/to/talentflow.db

# production or development logging
log_format: production

# User id the CLI acts as (see 'talentflow user add')
actor_id: ""

mail_from: careers@talentflow.local
links_base_url: http://localhost:3000

# Re-registration cooling-off after rejection
cooling_off_fresher_days: 60
cooling_off_experienced_days: 90

# Reject candidate status changes outside the pipeline graph
strict_transitions: true

# Messaging (leave nats_url empty to log emails locally)
nats_url: ""
mail_subject: talentflow.mail.send
notification_subject: talentflow.notifications

# Job id counters use SQLite unless a Redis address is set
redis_addr: ""

# OTLP gRPC collector, e.g. localhost:4317
tracing_endpoint: ""

sweep_interval: 24h
`
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// Set updates a configuration value
func Set(key, value string) error {
	viper.Set(key, value)
	return viper.WriteConfig()
}

// Get retrieves a configuration value
func Get(key string) string {
	return viper.GetString(key)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".talentflow", "config.yaml")
}
