package handler

import (
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradesense/src/quotes"
)

// QuoteHandler returns the current quote for a symbol.
func QuoteHandler(provider quotes.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			symbol = "BTC-USD"
		}

		quote, err := provider.GetQuote(r.Context(), symbol)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).Warn("quote lookup failed")
			http.Error(w, "Failed to fetch quote", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(quote); err != nil {
			logger.WithError(err).Error("failed to encode quote response")
		}
	}
}
