// Package config reads the server settings from the environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const defaultEnvFile = ".env"

type Config struct {
	Port        string
	LogLevel    string
	Environment string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMinConns int32
	DBMaxConns int32

	KeyPath        string
	PasswordScheme string
	TokenTTL       time.Duration
	PurgeInterval  time.Duration
	CookieSecure   bool
	AllowOrigins   []string
	PublicBaseURL  string
	ApiVersion     string

	MailDomain    string
	MailAPIKey    string
	MailSender    string
	AMQPURL       string
	MailQueueName string
}

// Load reads envFile (".env" when empty) if it exists and builds the configuration from the environment.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("No .env file found, using environment variables from system")
	} else {
		log.Info("Loaded environment variables from .env file")
	}

	ttl, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	purge, err := getEnvDuration("TOKEN_PURGE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASS"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBMinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 30)),

		KeyPath:        getEnv("KEY_PAIR_PATH", "keys"),
		PasswordScheme: getEnv("PASSWORD_SCHEME", "sha256"),
		TokenTTL:       ttl,
		PurgeInterval:  purge,
		CookieSecure:   getEnvBool("COOKIE_SECURE", true),
		AllowOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ApiVersion:     getEnv("PR_NUMBER", "main") + ":" + getEnv("GIT_SHA", "latest"),

		MailDomain:    os.Getenv("MAILGUN_DOMAIN"),
		MailAPIKey:    os.Getenv("MAILGUN_API_KEY"),
		MailSender:    getEnv("MAIL_SENDER", "Kazzla <noreply@kazzla.example>"),
		AMQPURL:       os.Getenv("MAIL_QUEUE_URL"),
		MailQueueName: getEnv("MAIL_QUEUE", "kazzla.mails"),
	}
	return cfg, nil
}

// DatabaseURL is the pgx connection string.
func (c *Config) DatabaseURL() (string, error) {
	if c.DBHost == "" || c.DBUser == "" || c.DBPassword == "" || c.DBName == "" {
		return "", fmt.Errorf("database environment variables not set")
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || value <= 0 {
		log.Warnf("Ignoring invalid number %s=%q", key, os.Getenv(key))
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		log.Warnf("Ignoring invalid boolean %s=%q", key, os.Getenv(key))
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	// plain numbers are seconds
	if seconds, convErr := strconv.Atoi(raw); convErr == nil {
		d, err = time.Duration(seconds)*time.Second, nil
	}
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration %s=%q", key, raw)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
