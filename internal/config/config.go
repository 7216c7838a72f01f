package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	AppPort  string
	LogLevel string

	StoreDriver string
	SQLitePath  string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	// RedisAddr empty disables idempotency, the loan lock and the snapshot cache.
	RedisAddr string
	RedisDB   int

	IdempTTLSecs    int
	LoanLockTTLSecs int

	JWTSecret string

	AnalyticsCron string

	NotifyWorkers int
	NotifyQueue   int

	SMTPHost    string
	SMTPPort    string
	SMTPUser    string
	SMTPPass    string
	SenderEmail string

	PubSubProjectID string
	PubSubTopic     string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads .env when present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:  getenv("APP_PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", DriverMySQL)),
		SQLitePath:  getenv("SQLITE_PATH", "loans.db"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "loans"),
		MySQLUser: getenv("MYSQL_USER", "loans"),
		MySQLPass: getenv("MYSQL_PASS", "loans"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getint("REDIS_DB", 0),

		IdempTTLSecs:    getint("IDEMPOTENCY_TTL_SECONDS", 300),
		LoanLockTTLSecs: getint("LOAN_LOCK_TTL_SECONDS", 10),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AnalyticsCron: getenv("ANALYTICS_CRON", "@every 5m"),

		NotifyWorkers: getint("NOTIFY_WORKERS", 2),
		NotifyQueue:   getint("NOTIFY_QUEUE", 256),

		SMTPHost:    os.Getenv("SMTP_HOST"),
		SMTPPort:    getenv("SMTP_PORT", "587"),
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),
		SenderEmail: os.Getenv("SENDER_EMAIL"),

		PubSubProjectID: os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:     getenv("PUBSUB_TOPIC", "loan-events"),
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 bytes")
	}
	switch c.StoreDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (mysql|sqlite|memory)", c.StoreDriver)
	}
	if c.IdempTTLSecs <= 0 || c.LoanLockTTLSecs <= 0 {
		return errors.New("IDEMPOTENCY_TTL_SECONDS and LOAN_LOCK_TTL_SECONDS must be positive")
	}
	if c.NotifyWorkers <= 0 || c.NotifyQueue <= 0 {
		return errors.New("NOTIFY_WORKERS and NOTIFY_QUEUE must be positive")
	}
	if c.SMTPHost != "" && c.SenderEmail == "" {
		return errors.New("SENDER_EMAIL is required when SMTP_HOST is set")
	}
	return nil
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) LoanLockTTL() time.Duration {
	return time.Duration(c.LoanLockTTLSecs) * time.Second
}

func (c *Config) MySQLDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.MySQLUser
	mc.Passwd = c.MySQLPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.MySQLHost, c.MySQLPort)
	mc.DBName = c.MySQLDB
	// parseTime needed for DATETIME
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.MultiStatements = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
