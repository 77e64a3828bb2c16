package models

import (
	"maps"
	"slices"
	"time"
)

// Bucket is one aggregated line of the address overview.
type Bucket struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// Overview aggregates perps/spot/vault/staked exposure of an address.
type Overview struct {
	Perps  Bucket `json:"perps"`
	Spot   Bucket `json:"spot"`
	Vault  Bucket `json:"vault"`
	Staked Bucket `json:"staked"`
}

// Snapshot is the state of one address at one fetch. Treat it as read-only:
// a new fetch produces a new Snapshot.
type Snapshot struct {
	Address   string             `json:"address"`
	Positions []Position         `json:"positions"`
	Holdings  map[string]float64 `json:"holdings"`
	Overview  Overview           `json:"overview"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// NewSnapshot copies positions and holdings so callers cannot alias them.
func NewSnapshot(address string, positions []Position, holdings map[string]float64, overview Overview, fetchedAt time.Time) *Snapshot {
	ps := slices.Clone(positions)
	for i := range ps {
		if ps[i].LiquidationPrice != nil {
			ps[i].LiquidationPrice = Float(*ps[i].LiquidationPrice)
		}
	}
	hs := maps.Clone(holdings)
	if hs == nil {
		hs = map[string]float64{}
	}
	return &Snapshot{
		Address:   address,
		Positions: ps,
		Holdings:  hs,
		Overview:  overview,
		FetchedAt: fetchedAt,
	}
}
