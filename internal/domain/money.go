package domain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Prices are stored exclusively as minor-unit integers (e.g. kobo). Display
// conversion happens here and nowhere else, so a missed divide-by-100 cannot
// creep into individual call sites.

const minorUnitsPerMajor = 100

var currencySymbols = map[string]string{
	"NGN": "₦",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMinor renders a minor-unit amount as a grouped display string with
// the currency symbol, e.g. FormatMinor(1250000, "NGN") == "₦12,500.00".
func FormatMinor(amount int64, currency string) string {
	symbol := currencySymbols[strings.ToUpper(strings.TrimSpace(currency))]
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(currency)) + " "
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}
	major := amount / minorUnitsPerMajor
	minor := amount % minorUnitsPerMajor

	formatted := moneyPrinter.Sprintf("%s%d.%02d", symbol, major, minor)
	if negative {
		return "-" + formatted
	}
	return formatted
}

// MajorUnits returns the integral major-unit portion of a minor-unit amount.
// The payment gateway boundary keeps minor units; this exists for reporting
// surfaces that need whole figures.
func MajorUnits(amount int64) int64 {
	return amount / minorUnitsPerMajor
}
