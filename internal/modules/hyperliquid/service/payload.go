package service

import (
	"github.com/shopspring/decimal"

	"hyper_monitor/internal/models"
)

// Numbers arrive as decimal strings ("1234.5"); a few (leverage.value) as
// plain JSON numbers. decimal.Decimal accepts both.

type clearinghouseState struct {
	AssetPositions []struct {
		Position assetPosition `json:"position"`
	} `json:"assetPositions"`
}

type assetPosition struct {
	Coin          string           `json:"coin"`
	Szi           decimal.Decimal  `json:"szi"`
	PositionValue decimal.Decimal  `json:"positionValue"`
	EntryPx       decimal.Decimal  `json:"entryPx"`
	LiquidationPx *decimal.Decimal `json:"liquidationPx"`
	Leverage      struct {
		Type  string          `json:"type"`
		Value decimal.Decimal `json:"value"`
	} `json:"leverage"`
	CumFunding struct {
		SinceOpen decimal.Decimal `json:"sinceOpen"`
	} `json:"cumFunding"`
}

type spotClearinghouseState struct {
	Balances []struct {
		Coin     string          `json:"coin"`
		Total    decimal.Decimal `json:"total"`
		EntryNtl decimal.Decimal `json:"entryNtl"`
	} `json:"balances"`
}

type vaultEquity struct {
	VaultAddress string          `json:"vaultAddress"`
	Equity       decimal.Decimal `json:"equity"`
}

type delegatorSummary struct {
	Delegated decimal.Decimal `json:"delegated"`
}

// positions converts perps state. Flat entries (szi == 0) are skipped.
func (s clearinghouseState) positions() []models.Position {
	out := make([]models.Position, 0, len(s.AssetPositions))
	for _, ap := range s.AssetPositions {
		p := ap.Position
		if p.Szi.IsZero() || p.Coin == "" {
			continue
		}
		dir := models.Long
		if p.Szi.IsNegative() {
			dir = models.Short
		}
		pos := models.Position{
			Token:      p.Coin,
			Direction:  dir,
			Value:      p.PositionValue.Abs().InexactFloat64(),
			Leverage:   p.Leverage.Value.InexactFloat64(),
			EntryPrice: p.EntryPx.InexactFloat64(),
			Funding:    p.CumFunding.SinceOpen.InexactFloat64(),
		}
		if p.LiquidationPx != nil {
			pos.LiquidationPrice = models.Float(p.LiquidationPx.InexactFloat64())
		}
		out = append(out, pos)
	}
	return out
}

func (s spotClearinghouseState) holdings() (map[string]float64, models.Bucket) {
	holdings := make(map[string]float64, len(s.Balances))
	var (
		b     models.Bucket
		value decimal.Decimal
	)
	for _, bal := range s.Balances {
		if !bal.Total.IsPositive() {
			continue
		}
		holdings[bal.Coin] = bal.Total.InexactFloat64()
		b.Count++
		value = value.Add(bal.EntryNtl)
	}
	b.Value = value.InexactFloat64()
	return holdings, b
}

func vaultBucket(vs []vaultEquity) models.Bucket {
	var (
		b     models.Bucket
		total decimal.Decimal
	)
	for _, v := range vs {
		if !v.Equity.IsPositive() {
			continue
		}
		b.Count++
		total = total.Add(v.Equity)
	}
	b.Value = total.InexactFloat64()
	return b
}

func stakedBucket(d delegatorSummary) models.Bucket {
	if !d.Delegated.IsPositive() {
		return models.Bucket{}
	}
	return models.Bucket{Count: 1, Value: d.Delegated.InexactFloat64()}
}

func perpsBucket(ps []models.Position) models.Bucket {
	b := models.Bucket{Count: len(ps)}
	for _, p := range ps {
		b.Value += p.Value
	}
	return b
}
