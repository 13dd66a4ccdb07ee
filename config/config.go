package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	LLM    LLMConfig
	GA4    GA4Config
	Sheets SheetsConfig
	Retry  RetryConfig
}

type ServerConfig struct {
	Port string
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type GA4Config struct {
	CredentialsPath   string
	DefaultPropertyID string
	Timeout           time.Duration
}

type SheetsConfig struct {
	CredentialsPath      string
	DefaultSpreadsheetID string
	RefreshSchedule      string // cron expression for sheet snapshot refreshes
	SnapshotTTL          time.Duration
	SnapshotStatePath    string
	Timeout              time.Duration
}

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("LLM_MODEL", "gemini-2.5-flash")
	viper.SetDefault("LLM_TIMEOUT", "60s")
	viper.SetDefault("GA4_CREDENTIALS_PATH", "./credentials.json")
	viper.SetDefault("GA4_TIMEOUT", "30s")
	viper.SetDefault("SHEETS_CREDENTIALS_PATH", "./credentials.json")
	viper.SetDefault("SHEETS_REFRESH_SCHEDULE", "0 */10 * * * *") // every 10 minutes
	viper.SetDefault("SHEETS_SNAPSHOT_TTL", "10m")
	viper.SetDefault("SHEETS_SNAPSHOT_STATE_PATH", "./sheet_snapshots.json")
	viper.SetDefault("SHEETS_TIMEOUT", "30s")
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_INITIAL_INTERVAL", "1s")
	viper.SetDefault("RETRY_MAX_INTERVAL", "10s")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config
	config.Server.Port = viper.GetString("SERVER_PORT")

	config.LLM.APIKey = viper.GetString("LLM_API_KEY")
	config.LLM.BaseURL = viper.GetString("LLM_BASE_URL")
	config.LLM.Model = viper.GetString("LLM_MODEL")
	config.LLM.Timeout = viper.GetDuration("LLM_TIMEOUT")

	config.GA4.CredentialsPath = viper.GetString("GA4_CREDENTIALS_PATH")
	config.GA4.DefaultPropertyID = viper.GetString("GA4_DEFAULT_PROPERTY_ID")
	config.GA4.Timeout = viper.GetDuration("GA4_TIMEOUT")

	config.Sheets.CredentialsPath = viper.GetString("SHEETS_CREDENTIALS_PATH")
	config.Sheets.DefaultSpreadsheetID = viper.GetString("SHEETS_SPREADSHEET_ID")
	config.Sheets.RefreshSchedule = viper.GetString("SHEETS_REFRESH_SCHEDULE")
	config.Sheets.SnapshotTTL = viper.GetDuration("SHEETS_SNAPSHOT_TTL")
	config.Sheets.SnapshotStatePath = viper.GetString("SHEETS_SNAPSHOT_STATE_PATH")
	config.Sheets.Timeout = viper.GetDuration("SHEETS_TIMEOUT")

	config.Retry.MaxAttempts = viper.GetInt("RETRY_MAX_ATTEMPTS")
	config.Retry.InitialInterval = viper.GetDuration("RETRY_INITIAL_INTERVAL")
	config.Retry.MaxInterval = viper.GetDuration("RETRY_MAX_INTERVAL")

	log.Info().Str("port", config.Server.Port).Str("model", config.LLM.Model).Msg("Config loaded")
	return &config, nil
}
