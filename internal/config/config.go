package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/hr-monitor/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. HRMON_RISK_HIGH.
const EnvPrefix = "HRMON"

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Anonymize  AnonymizeConfig  `yaml:"anonymize" mapstructure:"anonymize"`
	Risk       RiskConfig       `yaml:"risk" mapstructure:"risk"`
	Attendance AttendanceConfig `yaml:"attendance" mapstructure:"attendance"`
	Comment    CommentConfig    `yaml:"comment" mapstructure:"comment"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Mapping    MappingConfig    `yaml:"mapping" mapstructure:"mapping"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnonymizeConfig configures identifier pseudonymization.
type AnonymizeConfig struct {
	Salt   string `yaml:"salt" mapstructure:"salt"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Length int    `yaml:"length" mapstructure:"length"`
}

// RiskConfig holds the risk tier cut points in percent.
type RiskConfig struct {
	Medium float64 `yaml:"medium" mapstructure:"medium"`
	High   float64 `yaml:"high" mapstructure:"high"`
}

// AttendanceConfig holds the anomaly detector thresholds.
type AttendanceConfig struct {
	ZThreshold float64 `yaml:"z_threshold" mapstructure:"z_threshold"`
	LongHours  float64 `yaml:"long_hours" mapstructure:"long_hours"`
	StreakDays int     `yaml:"streak_days" mapstructure:"streak_days"`
}

// CommentConfig configures the optional LLM comment generator. An empty
// APIKey selects template comments.
type CommentConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	RatePerMin  int     `yaml:"rate_per_min" mapstructure:"rate_per_min"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ReportConfig configures PDF rendering.
type ReportConfig struct {
	FontPath       string   `yaml:"font_path" mapstructure:"font_path"`
	FontCandidates []string `yaml:"font_candidates" mapstructure:"font_candidates"`
	RiskRows       int      `yaml:"risk_rows" mapstructure:"risk_rows"`
	AnomalyRows    int      `yaml:"anomaly_rows" mapstructure:"anomaly_rows"`
}

// MappingConfig points at an optional YAML synonym dictionary.
type MappingConfig struct {
	SynonymsPath string `yaml:"synonyms_path" mapstructure:"synonyms_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// legacyEnv maps config keys onto the unprefixed variable names older
// deployments already set.
var legacyEnv = map[string]string{
	"anonymize.salt":   "ANON_SALT",
	"comment.api_key":  "ANTHROPIC_API_KEY",
	"report.font_path": "JP_FONT_PATH",
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", legacy)
		}
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anonymize.salt", "hrtool")
	v.SetDefault("anonymize.prefix", "ID_")
	v.SetDefault("anonymize.length", 8)
	tiers, params := model.DefaultThresholds(), model.DefaultAnomalyParams()
	v.SetDefault("risk.medium", tiers.Medium)
	v.SetDefault("risk.high", tiers.High)
	v.SetDefault("attendance.z_threshold", params.ZThreshold)
	v.SetDefault("attendance.long_hours", params.LongHours)
	v.SetDefault("attendance.streak_days", params.StreakDays)
	v.SetDefault("comment.api_key", "")
	v.SetDefault("comment.model", "claude-haiku-4-5-20251001")
	v.SetDefault("comment.timeout_secs", 20)
	v.SetDefault("comment.max_tokens", 200)
	v.SetDefault("comment.temperature", 0.4)
	v.SetDefault("comment.rate_per_min", 30)
	v.SetDefault("comment.max_attempts", 2)
	v.SetDefault("report.font_path", "")
	v.SetDefault("report.font_candidates", []string{})
	v.SetDefault("report.risk_rows", 10)
	v.SetDefault("report.anomaly_rows", 20)
	v.SetDefault("mapping.synonyms_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 20)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
