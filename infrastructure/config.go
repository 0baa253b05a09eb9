package infrastructure

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	TelegramToken    string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	GeoNamesUsername string `envconfig:"GEONAMES_USERNAME" required:"true"`
	BotUsername      string `envconfig:"BOT_USERNAME"`

	StoreDriver     string        `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath      string        `envconfig:"SQLITE_PATH" default:"reminders.db"`
	MongoURI        string        `envconfig:"MONGODB_URI"`
	MongoDatabase   string        `envconfig:"MONGODB_DATABASE" default:"telegram_bot"`
	StoreTimeout    time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
	GeoNamesURL     string        `envconfig:"GEONAMES_URL" default:"http://api.geonames.org"`
	GeoNamesTimeout time.Duration `envconfig:"GEONAMES_TIMEOUT" default:"5s"`

	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"30s"`
	PollTimeout     time.Duration `envconfig:"POLL_TIMEOUT" default:"10s"`
	SendRate        float64       `envconfig:"SEND_RATE" default:"25"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads envFile into the process environment, without overriding
// variables that are already set, then parses Config. A missing envFile is not an error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process environment variables")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo store")
		}
	default:
		return errors.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}

	if c.SendRate <= 0 {
		return errors.Errorf("SEND_RATE must be positive, got %v", c.SendRate)
	}
	return nil
}
