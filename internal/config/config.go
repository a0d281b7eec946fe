package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type DB struct {
	Host            string `envconfig:"DB_HOST" default:"postgres"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"scheduler"`
	Password        string `envconfig:"DB_PASSWORD" default:"scheduler"`
	Name            string `envconfig:"DB_NAME" default:"scheduler_db"`
	SSLMode         string `envconfig:"DB_SSLMODE" default:"disable"`
	TimeZone        string `envconfig:"DB_TIMEZONE" default:"Asia/Tokyo"`
	MaxOpenConns    int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifeTime int    `envconfig:"DB_CONN_MAX_LIFETIME_MIN" default:"30"` // минут
}

type App struct {
	DB DB

	// HTTP
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Сторонняя платформа бронирования.
	ProviderBaseURL    string `envconfig:"PROVIDER_BASE_URL" default:"https://api.bookings.example.com"`
	ProviderAPIKey     string `envconfig:"PROVIDER_API_KEY"`
	ProviderTimeoutSec int    `envconfig:"PROVIDER_TIMEOUT_SEC" default:"10"` // на один продукт

	// Окно и ограничения синхронизации кеша.
	SyncPastDays    int `envconfig:"SYNC_PAST_DAYS" default:"30"`
	SyncFutureDays  int `envconfig:"SYNC_FUTURE_DAYS" default:"90"`
	SyncMaxInFlight int `envconfig:"SYNC_MAX_IN_FLIGHT" default:"5"`
	// 0 — периодическая синхронизация выключена.
	SyncIntervalMin int `envconfig:"SYNC_INTERVAL_MIN" default:"0"`

	// Порог устаревания кеша для health-отчёта.
	CacheStaleAfterHr int `envconfig:"CACHE_STALE_AFTER_HR" default:"24"`
}

func Load() (*App, error) {
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}

	// минимальная валидация
	if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
		return nil, fmt.Errorf("invalid DB config: host/user/name must not be empty")
	}
	if c.SyncPastDays < 0 || c.SyncFutureDays < 0 {
		return nil, fmt.Errorf("invalid sync window: days must not be negative")
	}
	if c.SyncMaxInFlight <= 0 {
		c.SyncMaxInFlight = 5
	}

	return &c, nil
}
