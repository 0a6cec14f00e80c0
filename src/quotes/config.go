package quotes

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	YahooBaseURL      string        `envconfig:"QUOTES_YAHOO_BASE_URL" default:"https://query1.finance.yahoo.com"`
	CasablancaBaseURL string        `envconfig:"QUOTES_CASABLANCA_BASE_URL" default:"https://www.casablanca-bourse.com"`
	HTTPTimeout       time.Duration `envconfig:"QUOTES_HTTP_TIMEOUT" default:"10s"`
	RetryCount        int           `envconfig:"QUOTES_RETRY_COUNT" default:"2"`
	QuoteCacheTTL     time.Duration `envconfig:"QUOTES_CACHE_TTL" default:"30s"`
	MoroccoCacheTTL   time.Duration `envconfig:"QUOTES_MOROCCO_CACHE_TTL" default:"60s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
