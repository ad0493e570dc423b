package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"sporty/calendar"
	"sporty/models"
	"sporty/utils"
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type PushSettings struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"-"`
	Subject    string `json:"subject"`
}

type CalendarSettings struct {
	Timezone         string `json:"timezone"`
	WeekStartsOn     int    `json:"week_starts_on"`
	StartHour        int    `json:"start_hour"`
	EndHour          int    `json:"end_hour"`
	MaxVisibleEvents int    `json:"max_visible_events"`
	AgendaDays       int    `json:"agenda_days"`
}

type Config struct {
	Environment    string        `json:"environment"`
	ServerPort     string        `json:"server_port"`
	PublicURL      string        `json:"public_url"`
	JWTSecret      string        `json:"-"`
	DBHost         string        `json:"db_host"`
	DBPort         string        `json:"db_port"`
	DBUser         string        `json:"db_user"`
	DBPassword     string        `json:"-"`
	DBName         string        `json:"db_name"`
	DBSSLMode      string        `json:"db_ssl_mode"`
	DBMaxIdleConns int           `json:"db_max_idle_conns"`
	DBMaxOpenConns int           `json:"db_max_open_conns"`
	Redis          RedisConfig   `json:"redis"`
	CacheTTL       time.Duration `json:"cache_ttl"`
	SMTPHost       string        `json:"smtp_host"`
	SMTPPort       int           `json:"smtp_port"`
	SMTPUsername   string        `json:"smtp_username"`
	SMTPPassword   string        `json:"-"`
	FromEmail      string        `json:"from_email"`
	FromName       string        `json:"from_name"`
	SentryDSN      string        `json:"-"`
	LogLevel       string        `json:"log_level"`
	LogFormat      string        `json:"log_format"`

	Calendar CalendarSettings `json:"calendar"`
	Push     PushSettings     `json:"push"`

	NotifyRateLimit       int      `json:"notify_rate_limit"`
	NotificationQueueSize int      `json:"notification_queue_size"`
	MembershipAPIURL      string   `json:"membership_api_url"`
	CORSOrigins           []string `json:"cors_origins"`
	SeedDemoData          bool     `json:"seed_demo_data"`
}

// LoadConfig reads the process environment, after merging a .env file when
// one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		PublicURL:      getEnv("PUBLIC_URL", "http://localhost:3000"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "sporty"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		CacheTTL:     time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "no-reply@sporty.local"),
		FromName:     getEnv("FROM_NAME", "Sporty"),
		SentryDSN:    getEnv("SENTRY_DSN", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		Calendar: CalendarSettings{
			Timezone:         getEnv("TIMEZONE", "Europe/Oslo"),
			WeekStartsOn:     getEnvAsInt("WEEK_STARTS_ON", 0),
			StartHour:        getEnvAsInt("CALENDAR_START_HOUR", 0),
			EndHour:          getEnvAsInt("CALENDAR_END_HOUR", 24),
			MaxVisibleEvents: getEnvAsInt("CALENDAR_MAX_VISIBLE_EVENTS", 3),
			AgendaDays:       getEnvAsInt("CALENDAR_AGENDA_DAYS", calendar.AgendaDaysToShow),
		},
		Push: PushSettings{
			PublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			PrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subject:    getEnv("VAPID_SUBJECT", "mailto:admin@sporty.local"),
		},
		NotifyRateLimit:       getEnvAsInt("NOTIFY_RATE_LIMIT", 3),
		NotificationQueueSize: getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 256),
		MembershipAPIURL:      getEnv("MEMBERSHIP_API_URL", ""),
		CORSOrigins:           getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		SeedDemoData:          getEnvAsBool("SEED_DEMO_DATA", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Environment == "production" && c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Calendar.Timezone, err)
	}
	if c.Calendar.WeekStartsOn < 0 || c.Calendar.WeekStartsOn > 6 {
		return fmt.Errorf("WEEK_STARTS_ON must be between 0 and 6")
	}
	h := c.Calendar
	if h.StartHour < 0 || h.EndHour > 24 || h.StartHour >= h.EndHour {
		return fmt.Errorf("calendar hours must satisfy 0 <= CALENDAR_START_HOUR < CALENDAR_END_HOUR <= 24")
	}
	return nil
}

// Location is the canonical display time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CalendarConfig builds the projection engine settings.
func (c *Config) CalendarConfig() calendar.Config {
	cfg := calendar.DefaultConfig()
	cfg.Location = c.Location()
	cfg.WeekStartsOn = time.Weekday(c.Calendar.WeekStartsOn)
	cfg.StartHour = c.Calendar.StartHour
	cfg.EndHour = c.Calendar.EndHour
	if c.Calendar.MaxVisibleEvents > 0 {
		cfg.MaxVisibleEvents = c.Calendar.MaxVisibleEvents
	}
	if c.Calendar.AgendaDays > 0 {
		cfg.AgendaDays = c.Calendar.AgendaDays
	}
	return cfg
}

func (c *Config) MailerConfig() utils.MailerConfig {
	return utils.MailerConfig{
		Host:      c.SMTPHost,
		Port:      c.SMTPPort,
		Username:  c.SMTPUsername,
		Password:  c.SMTPPassword,
		FromEmail: c.FromEmail,
		FromName:  c.FromName,
	}
}

// PushConfig is the web push key pair. Push stays off unless both keys are set.
func (c *Config) PushConfig() utils.PushConfig {
	return utils.PushConfig{
		PublicKey:  c.Push.PublicKey,
		PrivateKey: c.Push.PrivateKey,
		Subscriber: c.Push.Subject,
	}
}

// ConnectDB opens the Postgres pool and migrates the schema.
func ConnectDB(cfg *Config, log *logrus.Entry) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)
	log.WithField("dsn", maskPassword(dsn)).Info("connecting to database")

	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.Environment == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("migrating database")
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return db, nil
}

// Fields summarises the configuration for the startup log.
func (c *Config) Fields() logrus.Fields {
	return logrus.Fields{
		"environment": c.Environment,
		"port":        c.ServerPort,
		"database":    fmt.Sprintf("%s@%s:%s/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName),
		"redis":       c.Redis.Enabled,
		"timezone":    c.Calendar.Timezone,
		"sentry":      c.SentryDSN != "",
		"web_push":    c.PushConfig().Enabled(),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}
