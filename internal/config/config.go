package config

import (
	"github.com/caarlos0/env/v11"
)

// Config is read from the environment (godotenv loads .env in main).
// Backend selection: POSTGRES_URL wins over REDIS_URL wins over sqlite.
// DBPath empty means the default location under ~/.config/stride.
type Config struct {
	DBPath      string `env:"STRIDE_DB"`
	RedisURL    string `env:"REDIS_URL"`
	PostgresURL string `env:"POSTGRES_URL"`

	StravaAccessToken  string `env:"STRAVA_ACCESS_TOKEN"`
	StravaRefreshToken string `env:"STRAVA_REFRESH_TOKEN"`
	StravaClientID     string `env:"STRAVA_CLIENT_ID"`
	StravaClientSecret string `env:"STRAVA_CLIENT_SECRET"`

	MaxHeartRate float64 `env:"MAX_HEART_RATE" envDefault:"190"`
	Units        string  `env:"UNITS" envDefault:"metric"`
	ChunkSize    int     `env:"IMPORT_CHUNK_SIZE"`
}

func Read() (Config, error) {
	return env.ParseAs[Config]()
}
