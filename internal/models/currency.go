package models

import "strings"

// Supported ISO 4217 codes.
const (
	CurrencyUSD = "USD"
	CurrencyUYU = "UYU"
	CurrencyEUR = "EUR"
	CurrencyBRL = "BRL"
	CurrencyARS = "ARS"
)

// SupportedCurrencies lists the codes accepted anywhere a currency is named.
var SupportedCurrencies = []string{CurrencyUSD, CurrencyUYU, CurrencyEUR, CurrencyBRL, CurrencyARS}

func IsSupportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
