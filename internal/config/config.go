// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Поддерживаемые драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrInvalidConfig — конфигурация прочитана, но не проходит проверку Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Cookie    CookieConfig    `yaml:"cookie"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"15s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Секреты и сроки жизни access и refresh токенов независимы.
type AuthConfig struct {
	AccessTokenSecret  string        `yaml:"access_token_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env:"JWT_EXPIRATION_TIME" env-default:"1h"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env:"JWT_REFRESH_EXPIRATION_TIME" env-default:"168h"`
	Issuer             string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"starwars-api"`
	Audience           []string      `yaml:"audience" env:"JWT_AUDIENCE" env-default:"starwars-api"`
	StoreTimeout       time.Duration `yaml:"store_timeout" env:"AUTH_STORE_TIMEOUT" env-default:"3s"`
	BcryptCost         int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// CookieConfig — атрибуты cookie с refresh-токеном.
// Для очистки cookie при logout используются те же атрибуты.
// Secure по умолчанию true (см. defaults).
type CookieConfig struct {
	Name     string `yaml:"name" env:"REFRESH_COOKIE_NAME" env-default:"refreshToken"`
	Path     string `yaml:"path" env:"REFRESH_COOKIE_PATH" env-default:"/auth/refresh"`
	Domain   string `yaml:"domain" env:"REFRESH_COOKIE_DOMAIN"`
	Secure   bool   `yaml:"secure" env:"REFRESH_COOKIE_SECURE"`
	SameSite string `yaml:"same_site" env:"REFRESH_COOKIE_SAME_SITE" env-default:"strict"`
}

// SameSiteMode переводит строковое значение в http.SameSite.
// Значение заранее проверено Validate, поэтому неизвестное трактуется как strict.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteStrictMode
	}
}

// DBConfig — настройки подключения к базе данных.
// Migrate по умолчанию true (см. defaults).
type DBConfig struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	Migrate     bool   `yaml:"migrate" env:"DB_MIGRATE"`
}

// RedisConfig — подключение к Redis для rate limit. Пустой URL отключает ограничение.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

// RateLimitConfig — ограничение частоты попыток входа с одного адреса.
type RateLimitConfig struct {
	LoginLimit  int           `yaml:"login_limit" env:"LOGIN_RATE_LIMIT" env-default:"10"`
	LoginWindow time.Duration `yaml:"login_window" env:"LOGIN_RATE_WINDOW" env-default:"1m"`
}

// AdminConfig — учётная запись администратора, создаваемая при старте (опционально).
type AdminConfig struct {
	Email    string `yaml:"email" env:"ADMIN_EMAIL"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
}

// Enabled сообщает, задана ли учётная запись администратора.
func (a AdminConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// Validate проверяет инварианты, которые cleanenv выразить не может.
func (c *Config) Validate() error {
	a := c.Auth

	if a.AccessTokenSecret == "" || a.RefreshTokenSecret == "" {
		return fmt.Errorf("%w: access and refresh token secrets are required", ErrInvalidConfig)
	}

	if a.AccessTokenSecret == a.RefreshTokenSecret {
		return fmt.Errorf("%w: refresh token secret must differ from access token secret", ErrInvalidConfig)
	}

	if a.AccessTokenTTL <= 0 || a.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalidConfig)
	}

	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown db driver %q", ErrInvalidConfig, c.DB.Driver)
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "none", "lax", "strict":
	default:
		return fmt.Errorf("%w: unknown cookie same_site %q", ErrInvalidConfig, c.Cookie.SameSite)
	}

	// SameSite=None браузеры принимают только вместе с Secure.
	if strings.EqualFold(c.Cookie.SameSite, "none") && !c.Cookie.Secure {
		return fmt.Errorf("%w: same_site=none requires secure cookie", ErrInvalidConfig)
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ENV-переменные имеют приоритет над значениями из YAML.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults задаёт значения по умолчанию для bool-полей.
// env-default для них не годится: cleanenv считает false незаданным
// значением и подставляет default поверх явного false из YAML.
func defaults() Config {
	return Config{
		Cookie: CookieConfig{Secure: true},
		DB:     DBConfig{Migrate: true},
	}
}

func read(path string) (*Config, error) {
	cfg := defaults()

	// ReadConfig читает файл и накладывает поверх него ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
