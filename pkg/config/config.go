package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "DOCROUTE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "DOCROUTE_DB_DSN"
	EnvDBHost = "DOCROUTE_DB_HOST"
	EnvDBUser = "DOCROUTE_DB_USER"
	EnvDBName = "DOCROUTE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Uploads      UploadsConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DOCROUTE_APP_ENV" required:"true"`
	Port         string `envconfig:"DOCROUTE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DOCROUTE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DOCROUTE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DOCROUTE_DB_DSN"`
	Driver string `envconfig:"DOCROUTE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DOCROUTE_DB_HOST"`
	LegacyPort     int    `envconfig:"DOCROUTE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DOCROUTE_DB_USER"`
	LegacyPassword string `envconfig:"DOCROUTE_DB_PASSWORD"`
	LegacyName     string `envconfig:"DOCROUTE_DB_NAME"`
	LegacySSLMode  string `envconfig:"DOCROUTE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DOCROUTE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DOCROUTE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DOCROUTE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DOCROUTE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DOCROUTE_REDIS_URL"`
	Address      string        `envconfig:"DOCROUTE_REDIS_ADDR"`
	Password     string        `envconfig:"DOCROUTE_REDIS_PASSWORD"`
	DB           int           `envconfig:"DOCROUTE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DOCROUTE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DOCROUTE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DOCROUTE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DOCROUTE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DOCROUTE_REDIS_WRITE_TIMEOUT" default:"5s"`

	IdempotencyTTL time.Duration `envconfig:"DOCROUTE_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DOCROUTE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DOCROUTE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DOCROUTE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DOCROUTE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DOCROUTE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DOCROUTE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"DOCROUTE_GCS_BUCKET_NAME"`
	UploadURLExpiry   time.Duration `envconfig:"DOCROUTE_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"DOCROUTE_GCS_DOWNLOAD_URL_EXPIRY" default:"10m"`
}

type UploadsConfig struct {
	MaxUploadMB       int      `envconfig:"DOCROUTE_MAX_UPLOAD_MB" default:"10"`
	AllowedExtensions []string `envconfig:"DOCROUTE_ALLOWED_EXTENSIONS" default:"pdf,doc,docx,xls,xlsx,jpg,jpeg,png,zip"`
}

// MaxUploadBytes returns the configured upload ceiling in bytes.
func (u UploadsConfig) MaxUploadBytes() int64 {
	return int64(u.MaxUploadMB) * 1024 * 1024
}

type PubSubConfig struct {
	DocumentTopic        string `envconfig:"DOCROUTE_PUBSUB_DOCUMENT_TOPIC"`
	DocumentSubscription string `envconfig:"DOCROUTE_PUBSUB_DOCUMENT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DOCROUTE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DOCROUTE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DOCROUTE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DOCROUTE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DOCROUTE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
