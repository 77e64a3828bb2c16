package helper

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// USD formats v with thousands separators: USD(2792478.4, 2) == "$2,792,478.40".
func USD(v float64, decimals int) string {
	if v < 0 {
		return "-" + USD(-v, decimals)
	}
	return "$" + printer.Sprintf("%.*f", decimals, v)
}

// Amount formats a token amount with thousands separators.
func Amount(v float64, decimals int) string {
	return printer.Sprintf("%.*f", decimals, v)
}

// Leverage renders 5 as "5x" and 2.5 as "2.5x".
func Leverage(v float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return s + "x"
}

// ShortAddress abbreviates 0x-addresses for compact log lines.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
