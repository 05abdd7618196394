package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	GatewayEnvSandbox    = "sandbox"
	GatewayEnvProduction = "production"

	gatewaySandboxBaseURL    = "https://sandbox.cashfree.com/pg"
	gatewayProductionBaseURL = "https://api.cashfree.com/pg"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Gateway           GatewayConfig
	Token             TokenConfig
	Auth              AuthConfig
	SMTP              SMTPConfig
	PubNub            PubNubConfig
	Kafka             KafkaConfig
	Pricing           PricingConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	EventName   string
	PublicURL   string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL     string
	PassTTL time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type GatewayConfig struct {
	Environment   string
	BaseURL       string
	AppID         string
	SecretKey     string
	WebhookSecret string
	APIVersion    string
	Currency      string
	ReturnURL     string
	NotifyURL     string
	HTTPTimeout   time.Duration
}

type TokenConfig struct {
	SigningSecret string
	ExpiryDays    int
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FromName    string
	SendTimeout time.Duration
}

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	UserID       string
}

type KafkaConfig struct {
	Brokers    []string
	PassTopic  string
	WriteAfter time.Duration
}

// PricingConfig holds the expected amount per pass type in gateway currency
// units. GroupPerMember is multiplied by the member count for group passes.
type PricingConfig struct {
	DayPass        int64
	Proshow        int64
	SanaConcert    int64
	GroupPerMember int64
}

type JobsConfig struct {
	ReconcileInterval   time.Duration
	ReconcileStaleAfter time.Duration
	ReconcileMaxAge     time.Duration
	JobBatchSize        int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	gatewaySecret := getEnv("GATEWAY_SECRET_KEY", "")
	gatewayEnv := strings.ToLower(getEnv("GATEWAY_ENV", GatewayEnvSandbox))
	if gatewayEnv != GatewayEnvSandbox && gatewayEnv != GatewayEnvProduction {
		return nil, errors.New("GATEWAY_ENV must be sandbox or production")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "passes-service"),
			EventName:   getEnv("APP_EVENT_NAME", "Festival"),
			PublicURL:   strings.TrimRight(getEnv("APP_PUBLIC_URL", ""), "/"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			PassTTL: getMinutesEnv("REDIS_PASS_TTL_MINUTES", 24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Gateway: GatewayConfig{
			Environment:   gatewayEnv,
			BaseURL:       strings.TrimRight(getEnv("GATEWAY_BASE_URL", gatewayBaseURL(gatewayEnv)), "/"),
			AppID:         getEnv("GATEWAY_APP_ID", ""),
			SecretKey:     gatewaySecret,
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", gatewaySecret),
			APIVersion:    getEnv("GATEWAY_API_VERSION", "2023-08-01"),
			Currency:      strings.ToUpper(getEnv("GATEWAY_CURRENCY", "INR")),
			ReturnURL:     getEnv("GATEWAY_RETURN_URL", ""),
			NotifyURL:     getEnv("GATEWAY_NOTIFY_URL", ""),
			HTTPTimeout:   getSecondsEnv("GATEWAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Token: TokenConfig{
			SigningSecret: getEnv("QR_SIGNING_SECRET", ""),
			ExpiryDays:    getIntEnv("QR_TOKEN_EXPIRY_DAYS", 30),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getIntEnv("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			From:        getEnv("SMTP_FROM", ""),
			FromName:    getEnv("SMTP_FROM_NAME", "Festival Passes"),
			SendTimeout: getSecondsEnv("SMTP_SEND_TIMEOUT_SECONDS", 15*time.Second),
		},
		PubNub: PubNubConfig{
			PublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
			SubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
			UserID:       getEnv("PUBNUB_USER_ID", "passes-service"),
		},
		Kafka: KafkaConfig{
			Brokers:    getListEnv("KAFKA_BROKERS"),
			PassTopic:  getEnv("KAFKA_PASS_TOPIC", "pass-events"),
			WriteAfter: getMillisecondsEnv("KAFKA_BATCH_TIMEOUT_MS", 50*time.Millisecond),
		},
		Pricing: PricingConfig{
			DayPass:        int64(getIntEnv("PASS_PRICE_DAY_PASS", 500)),
			Proshow:        int64(getIntEnv("PASS_PRICE_PROSHOW", 800)),
			SanaConcert:    int64(getIntEnv("PASS_PRICE_SANA_CONCERT", 1000)),
			GroupPerMember: int64(getIntEnv("PASS_PRICE_GROUP_PER_MEMBER", 250)),
		},
		Jobs: JobsConfig{
			ReconcileInterval:   getMinutesEnv("PASSES_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("PASSES_RECONCILE_STALE_AFTER_MINUTES", 10*time.Minute),
			ReconcileMaxAge:     getHoursEnv("PASSES_RECONCILE_MAX_AGE_HOURS", 72*time.Hour),
			JobBatchSize:        int32(getIntEnv("PASSES_JOB_BATCH_SIZE", 100)),
		},
	}, nil
}

// RequireSigningSecret fails when the QR signing secret is absent. Every
// command that mints or verifies pass tokens calls it before doing any work.
func (c *Config) RequireSigningSecret() error {
	if strings.TrimSpace(c.Token.SigningSecret) == "" {
		return errors.New("QR_SIGNING_SECRET environment variable is required")
	}
	return nil
}

func gatewayBaseURL(env string) string {
	if env == GatewayEnvProduction {
		return gatewayProductionBaseURL
	}
	return gatewaySandboxBaseURL
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getHoursEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if hours, err := strconv.Atoi(value); err == nil {
			return time.Duration(hours) * time.Hour
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
