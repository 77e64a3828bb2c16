package monitor

import (
	"fmt"
	"html"
	"strings"

	"hyper_monitor/internal/helper"
	"hyper_monitor/internal/models"
)

func directionText(d models.Direction) string {
	if d == models.Long {
		return "Long"
	}
	return "Short"
}

// FormatEvent renders the HTML notification text for one event.
func FormatEvent(addressLabel string, ev models.Event) string {
	p := ev.Position
	var b strings.Builder

	switch ev.Kind {
	case models.EventNewPosition:
		b.WriteString("🚨 <b>New position opened</b> 🚨\n\n")
		fmt.Fprintf(&b, "📊 <b>Address</b>: <code>%s</code>\n", html.EscapeString(addressLabel))
		fmt.Fprintf(&b, "🪙 <b>Token</b>: %s\n", html.EscapeString(p.Token))
		fmt.Fprintf(&b, "📈 <b>Direction</b>: %s\n", directionText(p.Direction))
		fmt.Fprintf(&b, "💰 <b>Value</b>: %s\n", helper.USD(p.Value, 2))
		fmt.Fprintf(&b, "⚡ <b>Leverage</b>: %s\n", helper.Leverage(p.Leverage))
		fmt.Fprintf(&b, "🏁 <b>Entry price</b>: %s\n", helper.USD(p.EntryPrice, 4))
		if p.HasLiquidation() {
			fmt.Fprintf(&b, "⚠️ <b>Liquidation price</b>: %s\n", helper.USD(*p.LiquidationPrice, 4))
		}

	case models.EventChangedPosition:
		emoji, verb := "📈", "increased"
		if ev.Direction == models.Decrease {
			emoji, verb = "📉", "decreased"
		}
		fmt.Fprintf(&b, "%s <b>Position changed</b> %s\n\n", emoji, emoji)
		fmt.Fprintf(&b, "📊 <b>Address</b>: <code>%s</code>\n", html.EscapeString(addressLabel))
		fmt.Fprintf(&b, "🪙 <b>Token</b>: %s\n", html.EscapeString(p.Token))
		fmt.Fprintf(&b, "📈 <b>Direction</b>: %s\n", directionText(p.Direction))
		fmt.Fprintf(&b, "💰 <b>Current value</b>: %s\n", helper.USD(p.Value, 2))
		fmt.Fprintf(&b, "🔄 <b>Change</b>: %s %.2f%%\n", verb, ev.Percent)
	}
	return b.String()
}
