package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/env"
	"github.com/hilthontt/codeclash/internal/infrastructure/validate"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Websocket   WebsocketConfig   `koanf:"websocket"`
	Match       MatchConfig       `koanf:"match"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Events      EventsConfig      `koanf:"events"`
	Logger      LoggerConfig      `koanf:"logger"`
	Tracing     TracingConfig     `koanf:"tracing"`
	RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
	MongoDB     MongoDBConfig     `koanf:"mongodb"`
	Judge       JudgeConfig       `koanf:"judge"`
	Auth        AuthConfig        `koanf:"auth"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type WebsocketConfig struct {
	ReadLimit      int64         `koanf:"read_limit"`
	PongWait       time.Duration `koanf:"pong_wait"`
	PingPeriod     time.Duration `koanf:"ping_period"`
	WriteWait      time.Duration `koanf:"write_wait"`
	QueueSize      int           `koanf:"queue_size"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

type MatchConfig struct {
	Duration time.Duration `koanf:"duration"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`
	RedisAddr        string        `koanf:"redis_addr"`
	RedisPassword    string        `koanf:"redis_password"`
	RedisDB          int           `koanf:"redis_db"`
}

// EventsConfig bounds inbound websocket events per connection. Editor
// changes arrive once per keystroke and draw from their own budget.
type EventsConfig struct {
	Control EventBudgetConfig `koanf:"control"`
	Editor  EventBudgetConfig `koanf:"editor"`
}

type EventBudgetConfig struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	Endpoint    string `koanf:"endpoint"`
}

type RabbitMQConfig struct {
	URI string `koanf:"uri"`
}

type MongoDBConfig struct {
	URI               string        `koanf:"uri"`
	Database          string        `koanf:"database"`
	ConnectionTimeout time.Duration `koanf:"connection_timeout"`
}

type JudgeConfig struct {
	BaseURL      string        `koanf:"base_url"`
	APIKey       string        `koanf:"api_key"`
	APIHost      string        `koanf:"api_host"`
	PollInterval time.Duration `koanf:"poll_interval"`
	MaxWait      time.Duration `koanf:"max_wait"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load from YAML file if it exists
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply defaults and environment variable overrides
	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	checks := []struct {
		value string
		check validate.Validator
	}{
		{c.Logger.Logger, validate.Field("logger.logger", validate.OneOf("zap", "zerolog", "nop"))},
		{c.Logger.Encoding, validate.Field("logger.encoding", validate.OneOf("json", "console"))},
		{c.Logger.Level, validate.Field("logger.level", validate.OneOf("debug", "info", "warn", "error", "fatal"))},
		{c.Judge.BaseURL, validate.Field("judge.base_url", validate.Optional(validate.URL()))},
		{c.Tracing.Endpoint, validate.Field("tracing.endpoint", validate.Optional(validate.URL()))},
	}
	for _, ch := range checks {
		if err := ch.check(ch.value); err != nil {
			return err
		}
	}

	if c.Match.Duration <= 0 {
		return fmt.Errorf("match.duration must be positive")
	}
	if c.Websocket.ReadLimit < domain.MaxEventBytes {
		return fmt.Errorf("websocket.read_limit must be at least %d bytes", domain.MaxEventBytes)
	}
	for name, b := range map[string]EventBudgetConfig{"control": c.Events.Control, "editor": c.Events.Editor} {
		if b.Limit <= 0 || b.Window <= 0 {
			return fmt.Errorf("events.%s needs a positive limit and window", name)
		}
	}
	if c.Websocket.PingPeriod >= c.Websocket.PongWait {
		return fmt.Errorf("websocket.ping_period must be shorter than websocket.pong_wait")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	// Websocket defaults
	setDefault(k, "websocket.read_limit", domain.MaxEventBytes)
	setDefault(k, "websocket.pong_wait", 60*time.Second)
	setDefault(k, "websocket.ping_period", 54*time.Second)
	setDefault(k, "websocket.write_wait", 10*time.Second)
	setDefault(k, "websocket.queue_size", 64)
	setDefault(k, "websocket.allowed_origins", []string{"*"})

	// Match defaults
	setDefault(k, "match.duration", 30*time.Minute)

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")

	// Inbound event budget
	setDefault(k, "events.control.limit", 120)
	setDefault(k, "events.control.window", 10*time.Second)
	setDefault(k, "events.editor.limit", 600)
	setDefault(k, "events.editor.window", 10*time.Second)

	// Logger defaults
	setDefault(k, "logger.file_path", "./logs/")
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")

	// Tracing defaults
	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.service_name", "codeclash")
	setDefault(k, "tracing.environment", "development")
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")

	// Storage defaults
	setDefault(k, "mongodb.database", "codeclash")
	setDefault(k, "mongodb.connection_timeout", 20*time.Second)

	// Judge defaults
	setDefault(k, "judge.poll_interval", 500*time.Millisecond)
	setDefault(k, "judge.max_wait", 30*time.Second)

	setDefault(k, "auth.issuer", "")
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	if d := env.GetDuration("MATCH_DURATION", 0); d > 0 {
		k.Set("match.duration", d)
	}

	// Rate limiter config from env
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}
	if cacheTTL := env.GetInt("RATE_LIMIT_CACHE_TTL_MINUTES", 0); cacheTTL > 0 {
		k.Set("rateLimiter.cacheTTL", time.Duration(cacheTTL)*time.Minute)
	}
	if sourceKey := env.GetString("RATE_LIMIT_SOURCE_HEADER_KEY", ""); sourceKey != "" {
		k.Set("rateLimiter.sourceHeaderKey", sourceKey)
	}
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("rateLimiter.redis_addr", addr)
	}
	if password := env.GetString("REDIS_PASSWORD", ""); password != "" {
		k.Set("rateLimiter.redis_password", password)
	}

	if limit := env.GetInt("EVENTS_LIMIT", 0); limit > 0 {
		k.Set("events.control.limit", limit)
	}
	if limit := env.GetInt("EVENTS_EDITOR_LIMIT", 0); limit > 0 {
		k.Set("events.editor.limit", limit)
	}

	// Logger config from env
	if path := env.GetString("LOGGER_FILE_PATH", ""); path != "" {
		k.Set("logger.file_path", path)
	}
	if encoding := env.GetString("LOGGER_ENCODING", ""); encoding != "" {
		k.Set("logger.encoding", encoding)
	}
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}

	if env.GetBool("TRACING_ENABLED", false) {
		k.Set("tracing.enabled", true)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}
	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
	}

	// External services
	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("rabbitmq.uri", uri)
	}
	if uri := env.GetString("MONGODB_URI", ""); uri != "" {
		k.Set("mongodb.uri", uri)
	}
	if database := env.GetString("MONGODB_DATABASE", ""); database != "" {
		k.Set("mongodb.database", database)
	}
	if baseURL := env.GetString("JUDGE_BASE_URL", ""); baseURL != "" {
		k.Set("judge.base_url", baseURL)
	}
	if apiKey := env.GetString("JUDGE_API_KEY", ""); apiKey != "" {
		k.Set("judge.api_key", apiKey)
	}
	if secret := env.GetString("JWT_SECRET", ""); secret != "" {
		k.Set("auth.jwt_secret", secret)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
