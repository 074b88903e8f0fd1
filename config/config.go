package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	DBDriver    string
	DatabaseURL string

	JWTSecret          string
	JWTExpiresIn       time.Duration
	JWTCookieExpiresIn int // days

	// Email Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string

	PaymentCheckoutURL  string
	LedgerSweepInterval time.Duration

	// UploadDir receives user photos under users/.
	UploadDir      string
	AllowedOrigins []string

	SeedData          bool
	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads the environment, after a local .env file when one exists.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "2525"))
	cookieDays, _ := strconv.Atoi(getEnv("JWT_COOKIE_EXPIRES_IN", "90"))
	seed, _ := strconv.ParseBool(getEnv("SEED_DATA", "false"))

	return &Config{
		Port:        getEnv("PORT", "3000"),
		Environment: getEnv("APP_ENV", "development"),
		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		DatabaseURL: getEnv("DATABASE_URL", "user:password@tcp(localhost:3306)/tourbook?charset=utf8mb4&parseTime=True&loc=UTC"),

		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiresIn:       getDuration("JWT_EXPIRES_IN", 90*24*time.Hour),
		JWTCookieExpiresIn: cookieDays,

		// Email settings
		SMTPHost:     getEnv("SMTP_HOST", "sandbox.smtp.mailtrap.io"),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@tourbook.io"),
		FromName:     getEnv("FROM_NAME", "Tourbook"),

		PaymentCheckoutURL:  getEnv("PAYMENT_CHECKOUT_URL", "https://checkout.tourbook.io/pay"),
		LedgerSweepInterval: getDuration("LEDGER_SWEEP_INTERVAL", time.Hour),

		UploadDir:      getEnv("UPLOAD_DIR", "public/img"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"), ","),

		SeedData:          seed,
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@tourbook.io"),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", "Admin#12345"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("90m") and bare day counts ("90d" or "90").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	trimmed := value
	if n := len(trimmed); n > 0 && trimmed[n-1] == 'd' {
		trimmed = trimmed[:n-1]
	}
	if days, err := strconv.Atoi(trimmed); err == nil {
		return time.Duration(days) * 24 * time.Hour
	}
	log.Printf("Warning: invalid duration %s=%q, using %s", key, value, defaultValue)
	return defaultValue
}
