package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Record store drivers.
const (
	StoreDriverMemory   = "memory"
	StoreDriverSheets   = "sheets"
	StoreDriverPostgres = "postgres"
)

// Mail drivers.
const (
	MailDriverLog = "log"
	MailDriverSES = "ses"
)

// Credential comparison modes.
const (
	CredentialModePlain  = "plain"
	CredentialModeBcrypt = "bcrypt"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store       StoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Cache       CacheConfig
	Mail        MailConfig
	Reset       ResetConfig
	Credentials CredentialsConfig
	Admin       AdminConfig
	Purchases   PurchasesConfig

	DefaultScope string
	Scopes       []ScopeConfig
}

// StoreConfig selects and tunes the record store gateway.
type StoreConfig struct {
	Driver          string
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	CallTimeout     time.Duration
	ReadRetries     int
	RetryBackoff    time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs read caching for leaderboard and badge listings.
type CacheConfig struct {
	Enabled        bool
	LeaderboardTTL time.Duration
	BadgesTTL      time.Duration
}

// MailConfig configures the notification port.
type MailConfig struct {
	Driver          string
	Region          string
	From            string
	FromName        string
	StudentDomain   string
	AdminRecipients []string
	Workers         int
	Retries         int
	RetryDelay      time.Duration
}

// ResetConfig controls the password reset code lifecycle.
type ResetConfig struct {
	CodeTTL       time.Duration
	SweepInterval time.Duration
}

// CredentialsConfig decides how student credentials are compared and stored.
type CredentialsConfig struct {
	Mode string
}

// AdminConfig protects administrative routes.
type AdminConfig struct {
	APIKey string
}

// PurchasesConfig bounds purchase requests.
type PurchasesConfig struct {
	MaxQuantity int
}

// ScopeConfig maps a cohort/section to its collections.
type ScopeConfig struct {
	Name           string
	Students       string
	Badges         string
	Purchases      string
	StudentColumns string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver:          strings.ToLower(v.GetString("STORE_DRIVER")),
		SpreadsheetID:   v.GetString("SPREADSHEET_ID"),
		CredentialsJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT"),
		CredentialsFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),
		CallTimeout:     parseDuration(v.GetString("STORE_CALL_TIMEOUT"), 10*time.Second),
		ReadRetries:     v.GetInt("STORE_READ_RETRIES"),
		RetryBackoff:    parseDuration(v.GetString("STORE_RETRY_BACKOFF"), 200*time.Millisecond),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:        v.GetBool("ENABLE_CACHE"),
		LeaderboardTTL: parseDuration(v.GetString("LEADERBOARD_CACHE_TTL"), time.Minute),
		BadgesTTL:      parseDuration(v.GetString("BADGES_CACHE_TTL"), 30*time.Second),
	}

	cfg.Mail = MailConfig{
		Driver:          strings.ToLower(v.GetString("MAIL_DRIVER")),
		Region:          v.GetString("AWS_REGION"),
		From:            v.GetString("MAIL_FROM"),
		FromName:        v.GetString("MAIL_FROM_NAME"),
		StudentDomain:   v.GetString("STUDENT_EMAIL_DOMAIN"),
		AdminRecipients: splitAndTrim(v.GetString("MAIL_ADMIN_RECIPIENTS")),
		Workers:         v.GetInt("MAIL_WORKERS"),
		Retries:         v.GetInt("MAIL_RETRIES"),
		RetryDelay:      parseDuration(v.GetString("MAIL_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Reset = ResetConfig{
		CodeTTL:       parseDuration(v.GetString("RESET_CODE_TTL"), 10*time.Minute),
		SweepInterval: parseDuration(v.GetString("RESET_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Credentials = CredentialsConfig{Mode: strings.ToLower(v.GetString("CREDENTIAL_MODE"))}
	cfg.Admin = AdminConfig{APIKey: v.GetString("ADMIN_API_KEY")}
	cfg.Purchases = PurchasesConfig{MaxQuantity: v.GetInt("PURCHASE_MAX_QUANTITY")}

	cfg.DefaultScope = v.GetString("DEFAULT_SCOPE")
	for _, name := range splitAndTrim(v.GetString("SCOPES")) {
		cfg.Scopes = append(cfg.Scopes, loadScope(v, name))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadScope(v *viper.Viper, name string) ScopeConfig {
	prefix := "SCOPE_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
	return ScopeConfig{
		Name:           name,
		Students:       stringOr(v, prefix+"STUDENTS", "Sheet1"),
		Badges:         stringOr(v, prefix+"BADGES", "Badges"),
		Purchases:      stringOr(v, prefix+"PURCHASES", "Purchases"),
		StudentColumns: v.GetString(prefix + "STUDENT_COLUMNS"),
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverPostgres:
	case StoreDriverSheets:
		if c.Store.SpreadsheetID == "" {
			return fmt.Errorf("SPREADSHEET_ID is required for the sheets store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Credentials.Mode {
	case CredentialModePlain, CredentialModeBcrypt:
	default:
		return fmt.Errorf("unknown CREDENTIAL_MODE %q", c.Credentials.Mode)
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("at least one scope must be configured")
	}
	found := false
	for _, scope := range c.Scopes {
		if scope.Name == c.DefaultScope {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("DEFAULT_SCOPE %q is not listed in SCOPES", c.DefaultScope)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("STORE_DRIVER", StoreDriverMemory)
	v.SetDefault("SPREADSHEET_ID", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	v.SetDefault("STORE_CALL_TIMEOUT", "10s")
	v.SetDefault("STORE_READ_RETRIES", 3)
	v.SetDefault("STORE_RETRY_BACKOFF", "200ms")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rewards_ledger")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "rewards-ledger-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("LEADERBOARD_CACHE_TTL", "1m")
	v.SetDefault("BADGES_CACHE_TTL", "30s")

	v.SetDefault("MAIL_DRIVER", MailDriverLog)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_FROM_NAME", "Classroom Rewards")
	v.SetDefault("STUDENT_EMAIL_DOMAIN", "up.edu.mx")
	v.SetDefault("MAIL_ADMIN_RECIPIENTS", "")
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_RETRIES", 2)
	v.SetDefault("MAIL_RETRY_DELAY", "5s")

	v.SetDefault("RESET_CODE_TTL", "10m")
	v.SetDefault("RESET_SWEEP_INTERVAL", "1m")

	v.SetDefault("CREDENTIAL_MODE", CredentialModePlain)
	v.SetDefault("ADMIN_API_KEY", "")
	v.SetDefault("PURCHASE_MAX_QUANTITY", 100)

	v.SetDefault("SCOPES", "default")
	v.SetDefault("DEFAULT_SCOPE", "default")
}

func stringOr(v *viper.Viper, key, fallback string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return fallback
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
