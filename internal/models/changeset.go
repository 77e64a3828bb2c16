package models

// ChangeDirection tags a material value change of an existing position.
type ChangeDirection string

const (
	Increase ChangeDirection = "increase"
	Decrease ChangeDirection = "decrease"
)

// PositionChange is an existing position whose value moved past the threshold.
type PositionChange struct {
	Position  Position
	Direction ChangeDirection
	Percent   float64
}

// ChangeSet is the result of diffing two snapshots of one address.
type ChangeSet struct {
	NewPositions     []Position
	ChangedPositions []PositionChange
}

func (c ChangeSet) Empty() bool {
	return len(c.NewPositions) == 0 && len(c.ChangedPositions) == 0
}

// EventKind distinguishes notification kinds.
type EventKind string

const (
	EventNewPosition     EventKind = "new_position"
	EventChangedPosition EventKind = "changed_position"
)

// Event is a single notifiable change.
type Event struct {
	Kind      EventKind
	Position  Position
	Direction ChangeDirection // changed positions only
	Percent   float64         // changed positions only
}

// Events flattens the change set, new positions first.
func (c ChangeSet) Events() []Event {
	out := make([]Event, 0, len(c.NewPositions)+len(c.ChangedPositions))
	for _, p := range c.NewPositions {
		out = append(out, Event{Kind: EventNewPosition, Position: p})
	}
	for _, ch := range c.ChangedPositions {
		out = append(out, Event{
			Kind:      EventChangedPosition,
			Position:  ch.Position,
			Direction: ch.Direction,
			Percent:   ch.Percent,
		})
	}
	return out
}
