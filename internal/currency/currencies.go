// Package currency converts amounts between the supported currencies. Rates
// come from an in-process cache, then the exchange_rates table, then an
// external provider, with a built-in table as the last resort.
package currency

import "github.com/fintrack/backend/internal/models"

// Info is the display metadata of a supported currency.
type Info struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

var supported = []Info{
	{Code: models.CurrencyUSD, Name: "US Dollar", Symbol: "$"},
	{Code: models.CurrencyUYU, Name: "Uruguayan Peso", Symbol: "$U"},
	{Code: models.CurrencyEUR, Name: "Euro", Symbol: "€"},
	{Code: models.CurrencyBRL, Name: "Brazilian Real", Symbol: "R$"},
	{Code: models.CurrencyARS, Name: "Argentine Peso", Symbol: "$"},
}

// Supported returns the metadata of every supported currency.
func Supported() []Info {
	out := make([]Info, len(supported))
	copy(out, supported)
	return out
}

type pair struct{ from, to string }

// fallbackRates are served when neither the store nor the provider has a rate.
var fallbackRates = map[pair]float64{
	{models.CurrencyUSD, models.CurrencyUYU}: 40.0,
	{models.CurrencyUYU, models.CurrencyUSD}: 0.025,
	{models.CurrencyUSD, models.CurrencyEUR}: 0.92,
	{models.CurrencyEUR, models.CurrencyUSD}: 1.09,
	{models.CurrencyEUR, models.CurrencyUYU}: 43.5,
	{models.CurrencyUYU, models.CurrencyEUR}: 0.023,
}

// fallbackRate returns the built-in rate for a pair. Pairs missing from the
// table use the inverse of the reverse entry; exact reports whether either
// was found, otherwise the rate is 1.
func fallbackRate(from, to string) (rate float64, exact bool) {
	if from == to {
		return 1, true
	}
	if r, ok := fallbackRates[pair{from, to}]; ok {
		return r, true
	}
	if r, ok := fallbackRates[pair{to, from}]; ok && r > 0 {
		return 1 / r, true
	}
	return 1, false
}
