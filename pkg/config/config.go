package config

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	SMTP        SMTPConfig
	Certificate CertificateConfig
	PDF         PDFConfig
	Exports     ExportsConfig
	LookupCache LookupCacheConfig

	Programs map[string]string
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig describes the outbound mail transport and its bounds.
type SMTPConfig struct {
	Host          string
	Port          int
	Secure        bool
	Username      string
	Password      string
	From          string
	Timeout       time.Duration
	MaxConcurrent int
}

// Configured returns whether transport credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// CertificateConfig covers the certificate canvas, branding and storage.
type CertificateConfig struct {
	Width              int
	Height             int
	InstituteName      string
	Tagline            string
	OutputDir          string
	ParticipantTimeout time.Duration
}

// PDFConfig bounds the headless rendering engine.
type PDFConfig struct {
	Timeout       time.Duration
	MaxConcurrent int
}

// ExportsConfig controls registry export storage and signed downloads.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// LookupCacheConfig gates the serial-lookup cache.
type LookupCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// defaultPrograms is the static program catalog shipped with the service.
var defaultPrograms = map[string]string{
	"MCX":  "Multi Commodity Exchange",
	"CDSL": "Central Depository Services Limited",
	"BSE":  "Bombay Stock Exchange",
	"NSE":  "National Stock Exchange",
	"NSDL": "National Securities Depository Limited",
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SMTP = SMTPConfig{
		Host:          v.GetString("SMTP_HOST"),
		Port:          v.GetInt("SMTP_PORT"),
		Secure:        v.GetBool("SMTP_SECURE"),
		Username:      v.GetString("SMTP_USER"),
		Password:      v.GetString("SMTP_PASS"),
		From:          v.GetString("SMTP_FROM"),
		Timeout:       parseDuration(v.GetString("MAIL_TIMEOUT"), 30*time.Second),
		MaxConcurrent: v.GetInt("MAIL_MAX_CONCURRENT"),
	}

	cfg.Certificate = CertificateConfig{
		Width:              v.GetInt("CERT_WIDTH"),
		Height:             v.GetInt("CERT_HEIGHT"),
		InstituteName:      v.GetString("CERT_INSTITUTE_NAME"),
		Tagline:            v.GetString("CERT_TAGLINE"),
		OutputDir:          v.GetString("CERT_OUTPUT_DIR"),
		ParticipantTimeout: parseDuration(v.GetString("CERT_PARTICIPANT_TIMEOUT"), 90*time.Second),
	}

	cfg.PDF = PDFConfig{
		Timeout:       parseDuration(v.GetString("PDF_TIMEOUT"), 60*time.Second),
		MaxConcurrent: v.GetInt("PDF_MAX_CONCURRENT"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.LookupCache = LookupCacheConfig{
		Enabled: v.GetBool("ENABLE_LOOKUP_CACHE"),
		TTL:     parseDuration(v.GetString("LOOKUP_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Programs = parsePrograms(v.GetString("PROGRAMS"))

	return cfg, nil
}

// ProgramCodes returns the catalog codes in stable alphabetical order.
func (c *Config) ProgramCodes() []string {
	codes := make([]string, 0, len(c.Programs))
	for code := range c.Programs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "certhub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_SECURE", false)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("MAIL_TIMEOUT", "30s")
	v.SetDefault("MAIL_MAX_CONCURRENT", 4)

	v.SetDefault("CERT_WIDTH", 1920)
	v.SetDefault("CERT_HEIGHT", 1080)
	v.SetDefault("CERT_INSTITUTE_NAME", "Sepiri EduHub")
	v.SetDefault("CERT_TAGLINE", "Excellence in Financial Education")
	v.SetDefault("CERT_OUTPUT_DIR", "./data/certificates")
	v.SetDefault("CERT_PARTICIPANT_TIMEOUT", "90s")

	v.SetDefault("PDF_TIMEOUT", "60s")
	v.SetDefault("PDF_MAX_CONCURRENT", 2)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./data/exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")

	v.SetDefault("ENABLE_LOOKUP_CACHE", false)
	v.SetDefault("LOOKUP_CACHE_TTL", "10m")

	v.SetDefault("PROGRAMS", "")
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

// parsePrograms reads a "CODE:Display Name" comma list, falling back to the
// static catalog when the override is empty or malformed.
func parsePrograms(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return clonePrograms(defaultPrograms)
	}

	programs := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		code, name, found := strings.Cut(entry, ":")
		code = strings.ToUpper(strings.TrimSpace(code))
		name = strings.TrimSpace(name)
		if !found || code == "" || name == "" {
			continue
		}
		programs[code] = name
	}
	if len(programs) == 0 {
		return clonePrograms(defaultPrograms)
	}
	return programs
}

func clonePrograms(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
