package signals

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbol        string        `envconfig:"SIGNALS_SYMBOL" default:"XAUUSD"`
	BasePrice     float64       `envconfig:"SIGNALS_BASE_PRICE" default:"2030"`
	FeedInterval  time.Duration `envconfig:"SIGNALS_FEED_INTERVAL" default:"60s"`
	SessionMaxAge time.Duration `envconfig:"SIGNALS_SESSION_MAX_AGE" default:"1h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
