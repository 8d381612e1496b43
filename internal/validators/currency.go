package validators

var supportedCurrencies = map[string]bool{
	"USD": true,
	"CAD": true,
	"EUR": true,
	"GBP": true,
}

// IsCurrencySupported reports whether we accept prices in the given ISO 4217
// code. The set matches the processor account configuration.
func IsCurrencySupported(code string) bool {
	return supportedCurrencies[code]
}
