package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	Port    string
	GinMode string
	BaseURL string

	LogLevel string
	LogJSON  bool
	LogFile  string

	DB DBConfig

	// JWTSecret valida os tokens emitidos pelo serviço de autenticação externo
	JWTSecret string
	// ServiceTokenHash é o hash bcrypt do token usado por gatilhos externos (cron)
	ServiceTokenHash string

	// RateLimitLocation define a fronteira "segunda 00:00" da cota semanal
	RateLimitLocation *time.Location

	AnthropicAPIKey  string
	AnthropicModel   string
	EstimatorTimeout time.Duration
	EstimatorPerMin  int

	AMQPURL           string
	MailExchange      string
	MailRatePerSecond float64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SprintCheckWindow time.Duration
}

// DBConfig contém as configurações de conexão com o PostgreSQL
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutos
	ConnMaxIdleTime int // minutos
}

var (
	// ErrMissingSecret indica que um segredo obrigatório não foi configurado
	ErrMissingSecret = errors.New("segredo obrigatório não configurado")

	// ErrMissingTimezone indica que o fuso da cota semanal não foi escolhido
	ErrMissingTimezone = errors.New("RATE_LIMIT_TIMEZONE não configurado (use um nome IANA, UTC ou Local)")
)

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		BaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getBool("LOG_JSON", false),
		LogFile:  os.Getenv("LOG_FILE"),
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "127.0.0.1"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            getEnv("DB_NAME", "clientflow"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTime: getInt("DB_CONN_MAX_IDLE_TIME_MIN", 2),
		},
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServiceTokenHash:  os.Getenv("SERVICE_TOKEN_HASH"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		EstimatorTimeout:  getDuration("ESTIMATOR_TIMEOUT", 20*time.Second),
		EstimatorPerMin:   getInt("ESTIMATOR_REQUESTS_PER_MINUTE", 30),
		AMQPURL:           os.Getenv("AMQP_URL"),
		MailExchange:      getEnv("MAIL_EXCHANGE", "clientflow.mail"),
		MailRatePerSecond: getFloat("MAIL_RATE_PER_SECOND", 10),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		SprintCheckWindow: getDuration("SPRINT_CHECK_WINDOW", 7*24*time.Hour),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET", ErrMissingSecret)
	}

	loc, err := LoadLocation(os.Getenv("RATE_LIMIT_TIMEZONE"))
	if err != nil {
		return nil, err
	}
	cfg.RateLimitLocation = loc

	return cfg, nil
}

// LoadLocation resolve o fuso da cota semanal. Não há padrão implícito.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, ErrMissingTimezone
	case strings.EqualFold(name, "local"):
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_TIMEZONE inválido %q: %w", name, err)
	}
	return loc, nil
}

// DatabaseOnly carrega apenas o necessário para ferramentas de linha de comando
func DatabaseOnly() DBConfig {
	_ = godotenv.Load()
	return DBConfig{
		Host:     getEnv("DB_HOST", "127.0.0.1"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     getEnv("DB_NAME", "clientflow"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
