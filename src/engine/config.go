package engine

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// QuoteTimeout bounds a single price lookup.
	QuoteTimeout time.Duration `envconfig:"ENGINE_QUOTE_TIMEOUT" default:"5s"`
	// TradeTimeout bounds the whole settle + evaluate unit of work.
	TradeTimeout time.Duration `envconfig:"ENGINE_TRADE_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
