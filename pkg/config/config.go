package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Mailjet  MailjetConfig
	Push     PushConfig
	Redis    RedisConfig
	Reco     RecoConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type MailjetConfig struct {
	MailjetBaseUrl           string
	MailjetBasicAuthUsername string
	MailjetBasicAuthPassword string
	MailjetSenderEmail       string
	MailjetSenderName        string
}

type PushConfig struct {
	PushBaseUrl string
	PushAPIKey  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// RecoConfig parameterizes the recommendation pipeline. Weight fields must
// sum to 1.0 within a 0.01 tolerance; Validate enforces that at load and on
// every manual-trigger override.
type RecoConfig struct {
	TopK                      int
	RecencyDays               int
	Strategy                  string
	WeightPurchase            float64
	WeightView                float64
	WeightFavorite            float64
	ExcludeRecentPurchaseDays int
	CacheTTLSeconds           int
	RecordTTLHours            int
	MaxNotificationsPerUser   int
	NotificationCooldownHours int
	EnableNotifications       bool
	EnableEmailNotifications  bool
	EnablePushNotifications   bool
	CronDaily                 string
	CronWeekly                string
}

const (
	StrategyCooccurrence = "cooccurrence"
	StrategyContent      = "content"
	StrategyHybrid       = "hybrid"
)

const weightTolerance = 0.01

// Validate checks the pipeline parameterization. It is the single gate for
// both process start and per-request overrides.
func (rc RecoConfig) Validate() error {
	if rc.TopK <= 0 {
		return errors.New("reco: top_k must be > 0")
	}
	if rc.RecencyDays <= 0 {
		return errors.New("reco: recency_days must be > 0")
	}
	switch rc.Strategy {
	case StrategyCooccurrence, StrategyContent, StrategyHybrid:
	default:
		return fmt.Errorf("reco: unknown strategy %q", rc.Strategy)
	}
	sum := rc.WeightPurchase + rc.WeightView + rc.WeightFavorite
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("reco: strategy weights must sum to 1.0, got %.4f", sum)
	}
	if rc.ExcludeRecentPurchaseDays < 0 {
		return errors.New("reco: exclude_recent_purchase_days must be >= 0")
	}
	if rc.RecordTTLHours <= 0 {
		return errors.New("reco: record_ttl_hours must be > 0")
	}
	if rc.MaxNotificationsPerUser < 0 {
		return errors.New("reco: max_notifications_per_user must be >= 0")
	}
	if rc.NotificationCooldownHours <= 0 {
		return errors.New("reco: notification_cooldown_hours must be > 0")
	}

	return nil
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "marketReco"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "market_reco"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Mailjet: MailjetConfig{
			MailjetBaseUrl:           getEnv("MAILJET_BASE_URL", ""),
			MailjetBasicAuthUsername: getEnv("MAILJET_BASIC_AUTH_USERNAME", ""),
			MailjetBasicAuthPassword: getEnv("MAILJET_BASIC_AUTH_PASSWORD", ""),
			MailjetSenderEmail:       getEnv("MAILJET_SENDER_EMAIL", ""),
			MailjetSenderName:        getEnv("MAILJET_SENDER_NAME", ""),
		},
		Push: PushConfig{
			PushBaseUrl: getEnv("PUSH_BASE_URL", ""),
			PushAPIKey:  getEnv("PUSH_API_KEY", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
	}

	reco, err := loadRecoConfig()
	if err != nil {
		return nil, err
	}
	cfg.Reco = reco

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if err := cfg.Reco.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRecoConfig() (RecoConfig, error) {
	rc := RecoConfig{
		Strategy:   getEnv("RECO_STRATEGY", StrategyHybrid),
		CronDaily:  getEnv("RECO_CRON_DAILY", "0 4 * * *"),
		CronWeekly: getEnv("RECO_CRON_WEEKLY", "0 5 * * 1"),
	}

	var err error
	if rc.TopK, err = getEnvInt("RECO_TOP_K", 20); err != nil {
		return rc, err
	}
	if rc.RecencyDays, err = getEnvInt("RECO_RECENCY_DAYS", 90); err != nil {
		return rc, err
	}
	if rc.WeightPurchase, err = getEnvFloat("RECO_WEIGHT_PURCHASE", 0.5); err != nil {
		return rc, err
	}
	if rc.WeightView, err = getEnvFloat("RECO_WEIGHT_VIEW", 0.3); err != nil {
		return rc, err
	}
	if rc.WeightFavorite, err = getEnvFloat("RECO_WEIGHT_FAVORITE", 0.2); err != nil {
		return rc, err
	}
	if rc.ExcludeRecentPurchaseDays, err = getEnvInt("RECO_EXCLUDE_RECENT_PURCHASE_DAYS", 14); err != nil {
		return rc, err
	}
	if rc.CacheTTLSeconds, err = getEnvInt("RECO_CACHE_TTL_SECONDS", 600); err != nil {
		return rc, err
	}
	if rc.RecordTTLHours, err = getEnvInt("RECO_RECORD_TTL_HOURS", 168); err != nil {
		return rc, err
	}
	if rc.MaxNotificationsPerUser, err = getEnvInt("RECO_MAX_NOTIFICATIONS_PER_USER", 1); err != nil {
		return rc, err
	}
	if rc.NotificationCooldownHours, err = getEnvInt("RECO_NOTIFICATION_COOLDOWN_HOURS", 24); err != nil {
		return rc, err
	}

	rc.EnableNotifications = getEnvBool("RECO_ENABLE_NOTIFICATIONS", false)
	rc.EnableEmailNotifications = getEnvBool("RECO_ENABLE_EMAIL_NOTIFICATIONS", true)
	rc.EnablePushNotifications = getEnvBool("RECO_ENABLE_PUSH_NOTIFICATIONS", true)

	return rc, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return f, nil
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}

	return b
}
