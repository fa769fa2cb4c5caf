package config

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/goserg/poolrating/internal/rating"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

type TgBot struct {
	Enabled          bool   `toml:"enabled"`
	TelegramApiToken string `toml:"telegram_apitoken"`
	Debug            bool   `toml:"debug_mode"`
}

type Server struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Debug    bool   `toml:"debug_mode"`
	LogLevel string `toml:"log_level"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

// TLS reports whether the server should listen with a certificate.
func (s Server) TLS() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

type Storage struct {
	Driver      string `toml:"driver"`
	SqliteFile  string `toml:"sqlite_file"`
	PostgresURL string `toml:"postgres_url"`
}

// Rating overrides the engine constants. Zero values keep the defaults.
type Rating struct {
	DefaultRating     float64 `toml:"default_rating"`
	DefaultRD         float64 `toml:"default_rd"`
	DefaultVolatility float64 `toml:"default_volatility"`
	Tau               float64 `toml:"tau"`
	Tolerance         float64 `toml:"tolerance"`
	MaxIterations     int     `toml:"max_iterations"`
	StreakThreshold   int     `toml:"streak_threshold"`
}

type Cron struct {
	Secret string `toml:"secret"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Rating  Rating  `toml:"rating"`
	TgBot   TgBot   `toml:"tg_bot"`
	Cron    Cron    `toml:"cron"`
}

func New(path string) (Config, error) {
	// .env is optional, the real environment wins either way.
	_ = godotenv.Load()

	cfg := Config{
		Server: Server{
			Host:     "0.0.0.0",
			Port:     3000,
			LogLevel: "info",
		},
		Storage: Storage{
			Driver:     DriverSqlite,
			SqliteFile: "pool.sqlite",
		},
		Rating: Rating{
			StreakThreshold: 3,
		},
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if token := os.Getenv("TELEGRAM_APITOKEN"); token != "" {
		cfg.TgBot.TelegramApiToken = token
	}
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		cfg.Cron.Secret = secret
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Storage.Driver = DriverPostgres
		cfg.Storage.PostgresURL = url
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var err error
	switch c.Storage.Driver {
	case DriverSqlite:
		if c.Storage.SqliteFile == "" {
			err = errors.Join(err, errors.New("storage.sqlite_file must be set"))
		}
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			err = errors.Join(err, errors.New("storage.postgres_url must be set"))
		}
	default:
		err = errors.Join(err, errors.New("unknown storage driver "+c.Storage.Driver))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		err = errors.Join(err, errors.New("server.cert_file and server.key_file must be set together"))
	}
	if c.TgBot.Enabled && c.TgBot.TelegramApiToken == "" {
		err = errors.Join(err, errors.New("tg_bot.telegram_apitoken must be set when the bot is enabled"))
	}
	return errors.Join(err, c.Rating.Params().Validate())
}

func (r Rating) Params() rating.Params {
	p := rating.DefaultParams()
	if r.DefaultRating != 0 {
		p.DefaultRating = r.DefaultRating
	}
	if r.DefaultRD != 0 {
		p.DefaultRD = r.DefaultRD
	}
	if r.DefaultVolatility != 0 {
		p.DefaultVolatility = r.DefaultVolatility
	}
	if r.Tau != 0 {
		p.Tau = r.Tau
	}
	if r.Tolerance != 0 {
		p.Tolerance = r.Tolerance
	}
	if r.MaxIterations != 0 {
		p.MaxIterations = r.MaxIterations
	}
	return p
}
