package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"hyper_monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, userID int64, text string) error {
	return m.Called(ctx, userID, text).Error(0)
}

func TestDispatcher_Delivered(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, int64(7), mock.MatchedBy(func(text string) bool {
		return assert.Contains(t, text, "New position opened") &&
			assert.Contains(t, text, "MELANIA") &&
			assert.Contains(t, text, "$2,792,478.40") &&
			assert.Contains(t, text, "5x") &&
			assert.Contains(t, text, "Liquidation price")
	})).Return(nil)

	d := NewDispatcher(sender, time.Second)
	p := models.Position{
		Token: "MELANIA", Direction: models.Long, Value: 2792478.40,
		Leverage: 5, EntryPrice: 0.71745, LiquidationPrice: models.Float(0.65333),
	}
	res := d.Dispatch(context.Background(), 7, "0xabc", models.Event{Kind: models.EventNewPosition, Position: p})

	assert.True(t, res.Delivered())
	assert.Equal(t, int64(7), res.UserID)
	assert.Equal(t, "0xabc", res.Address)
	assert.False(t, res.At.IsZero())
	sender.AssertExpectations(t)
}

func TestDispatcher_SendFailureIsReported(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, int64(7), mock.Anything).Return(errors.New("chat not found"))

	d := NewDispatcher(sender, time.Second)
	res := d.Dispatch(context.Background(), 7, "0xabc", models.Event{Kind: models.EventNewPosition})

	require.False(t, res.Delivered())
	var se *SendError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, int64(7), se.UserID)
	assert.EqualError(t, se.Unwrap(), "chat not found")
}

func TestDispatcher_AppliesTimeout(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), int64(1), mock.Anything).Return(nil)

	d := NewDispatcher(sender, 50*time.Millisecond)
	res := d.Dispatch(context.Background(), 1, "0xabc", models.Event{Kind: models.EventChangedPosition})
	assert.True(t, res.Delivered())
	sender.AssertExpectations(t)
}

func TestFormatEvent(t *testing.T) {
	newPos := FormatEvent("0xabc", models.Event{
		Kind:     models.EventNewPosition,
		Position: models.Position{Token: "BTC", Direction: models.Short, Value: 12000, Leverage: 10, EntryPrice: 65000},
	})
	assert.Contains(t, newPos, "<code>0xabc</code>")
	assert.Contains(t, newPos, "Short")
	assert.Contains(t, newPos, "$12,000.00")
	assert.Contains(t, newPos, "$65,000.0000")
	assert.NotContains(t, newPos, "Liquidation")

	changed := FormatEvent("0xabc", models.Event{
		Kind:      models.EventChangedPosition,
		Position:  models.Position{Token: "ETH", Direction: models.Long, Value: 130},
		Direction: models.Increase,
		Percent:   30,
	})
	assert.Contains(t, changed, "Position changed")
	assert.Contains(t, changed, "increased 30.00%")
	assert.Contains(t, changed, "$130.00")

	down := FormatEvent("0xabc", models.Event{Kind: models.EventChangedPosition, Direction: models.Decrease, Percent: 12.5})
	assert.Contains(t, down, "decreased 12.50%")
	assert.Contains(t, down, "📉")
}

func TestFormatEvent_EscapesToken(t *testing.T) {
	text := FormatEvent("0xabc", models.Event{
		Kind:     models.EventNewPosition,
		Position: models.Position{Token: "<b>X</b>", Direction: models.Long},
	})
	assert.Contains(t, text, "&lt;b&gt;X&lt;/b&gt;")
}
