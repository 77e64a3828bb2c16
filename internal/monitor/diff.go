package monitor

import (
	"math"

	"hyper_monitor/internal/models"

	"github.com/samber/lo"
)

// ChangeThresholdPct is the minimum value move, in percent, that makes an
// existing position notable. The comparison is strict.
const ChangeThresholdPct = 10.0

// Diff compares the previous snapshot of an address with a fresh one.
//
// A nil old snapshot is a first observation and yields an empty ChangeSet.
// Positions that disappeared are not reported.
func Diff(old, cur *models.Snapshot) models.ChangeSet {
	var cs models.ChangeSet
	if old == nil || cur == nil {
		return cs
	}

	prev := lo.SliceToMap(old.Positions, func(p models.Position) (models.PosKey, models.Position) {
		return p.Key(), p
	})

	for _, p := range cur.Positions {
		was, ok := prev[p.Key()]
		if !ok {
			cs.NewPositions = append(cs.NewPositions, p)
			continue
		}
		if was.Value <= 0 {
			continue
		}

		pct := math.Abs(p.Value-was.Value) / was.Value * 100
		if !(pct > ChangeThresholdPct) {
			continue
		}

		dir := models.Decrease
		if p.Value > was.Value {
			dir = models.Increase
		}
		cs.ChangedPositions = append(cs.ChangedPositions, models.PositionChange{
			Position:  p,
			Direction: dir,
			Percent:   pct,
		})
	}
	return cs
}
