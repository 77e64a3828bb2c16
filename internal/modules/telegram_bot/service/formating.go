package service

import (
	"fmt"
	"html"
	"slices"
	"strings"

	"hyper_monitor/internal/helper"
	"hyper_monitor/internal/models"

	"github.com/samber/lo"
)

const (
	textUnauthorized = "Sorry, you are not allowed to use this bot."
	textInternal     = "Something went wrong while processing the command, please try again later."
	textNoAddresses  = "You are not monitoring any address."
	textCancelled    = "Operation cancelled."
	textAskAddress   = "Send the wallet address to add:"
	textBadAddress   = "Invalid address format, send a valid 0x address (42 characters)."
	textWait         = "Fetching data, please wait..."
)

func formatStart(name, defaultAddress string) string {
	return fmt.Sprintf(
		"👋 Hi %s!\n\n"+
			"This bot watches Hyperliquid addresses and notifies you when a position is opened "+
			"or changes by more than 10%%.\n\n"+
			"Default address: <code>%s</code>\n\n"+
			"Use /help to see the available commands.",
		html.EscapeString(name), defaultAddress,
	)
}

func formatHelp() string {
	return "📋 <b>Commands</b>\n\n" +
		"/query [address] - show positions of an address (default address if omitted)\n" +
		"/monitor [address] - start monitoring an address (default address if omitted)\n" +
		"/stop_monitor &lt;address&gt; - stop monitoring an address\n" +
		"/add_address - add an address to monitor\n" +
		"/status - list monitored addresses\n" +
		"/cancel - cancel the current operation\n" +
		"/help - show this message"
}

func formatStatus(addresses []string) string {
	var b strings.Builder
	b.WriteString("📋 <b>Monitoring status</b>\n\n")
	fmt.Fprintf(&b, "Monitored addresses: %d\n\n", len(addresses))
	for i, a := range addresses {
		fmt.Fprintf(&b, "%d. <code>%s</code>\n", i+1, a)
	}
	return b.String()
}

func directionLabel(d models.Direction) string {
	if d == models.Long {
		return "Long"
	}
	return "Short"
}

// formatSnapshot renders the /query report.
func formatSnapshot(s *models.Snapshot) string {
	var b strings.Builder
	o := s.Overview

	fmt.Fprintf(&b, "📊 <b>%s</b> positions\n\n", s.Address)
	fmt.Fprintf(&b, "🔄 <b>Perps (%d)</b>: %s\n", o.Perps.Count, helper.USD(o.Perps.Value, 2))
	fmt.Fprintf(&b, "💱 <b>Spot (%d)</b>: %s\n", o.Spot.Count, helper.USD(o.Spot.Value, 2))
	fmt.Fprintf(&b, "🏦 <b>Vault</b>: %s\n", helper.USD(o.Vault.Value, 2))
	fmt.Fprintf(&b, "⚓ <b>Staked</b>: %s\n\n", helper.USD(o.Staked.Value, 2))

	if len(s.Positions) == 0 {
		b.WriteString("No open positions.\n")
	} else {
		fmt.Fprintf(&b, "📋 <b>Open positions (%d)</b>:\n\n", len(s.Positions))
		for i, p := range s.Positions {
			fmt.Fprintf(&b, "%d. <b>%s</b> (%s):\n", i+1, html.EscapeString(p.Token), directionLabel(p.Direction))
			fmt.Fprintf(&b, "   💰 Value: %s\n", helper.USD(p.Value, 2))
			fmt.Fprintf(&b, "   ⚡ Leverage: %s\n", helper.Leverage(p.Leverage))
			fmt.Fprintf(&b, "   🏁 Entry: %s\n", helper.USD(p.EntryPrice, 6))
			fmt.Fprintf(&b, "   💵 Funding: %s\n", helper.USD(p.Funding, 2))
			if p.HasLiquidation() {
				fmt.Fprintf(&b, "   ⚠️ Liquidation: %s\n", helper.USD(*p.LiquidationPrice, 6))
			} else {
				b.WriteString("   ⚠️ Liquidation: n/a\n")
			}
			b.WriteString("\n")
		}
	}

	tokens := lo.Filter(lo.Keys(s.Holdings), func(t string, _ int) bool { return s.Holdings[t] > 0 })
	if len(tokens) > 0 {
		slices.Sort(tokens)
		b.WriteString("\n💼 <b>Holdings</b>:\n\n")
		for _, t := range tokens {
			fmt.Fprintf(&b, "   %s: %s\n", html.EscapeString(t), helper.Amount(s.Holdings[t], 2))
		}
	}

	if !s.FetchedAt.IsZero() {
		fmt.Fprintf(&b, "\n🕒 <b>Updated</b>: %s UTC", s.FetchedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
