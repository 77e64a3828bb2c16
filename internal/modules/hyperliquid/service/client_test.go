package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hyper_monitor/internal/models"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAddress = "0xf3f496c9486be5924a93d67e98298733bb47057c"

	perpsJSON = `{
	  "assetPositions": [
	    {"type": "oneWay", "position": {
	      "coin": "MELANIA", "szi": "3863043.7", "positionValue": "2792478.4",
	      "entryPx": "0.71745", "liquidationPx": "0.65333",
	      "leverage": {"type": "cross", "value": 5},
	      "cumFunding": {"allTime": "400.1", "sinceChange": "10.0", "sinceOpen": "315.71"}}},
	    {"type": "oneWay", "position": {
	      "coin": "ETH", "szi": "-2.5", "positionValue": "9000.0",
	      "entryPx": "3500.0", "liquidationPx": null,
	      "leverage": {"type": "isolated", "value": 3},
	      "cumFunding": {"sinceOpen": "-1.5"}}},
	    {"type": "oneWay", "position": {
	      "coin": "SOL", "szi": "0.0", "positionValue": "0.0", "entryPx": "150",
	      "leverage": {"type": "cross", "value": 10}, "cumFunding": {"sinceOpen": "0"}}}
	  ],
	  "marginSummary": {"accountValue": "600000.0"}
	}`
	spotJSON = `{"balances": [
	  {"coin": "USDC", "token": 0, "hold": "0.0", "total": "1500.25", "entryNtl": "0.0"},
	  {"coin": "HYPE", "token": 150, "hold": "0.0", "total": "1200.5", "entryNtl": "24000.0"},
	  {"coin": "PURR", "token": 1, "hold": "0.0", "total": "0.0", "entryNtl": "0.0"}
	]}`
	vaultJSON  = `[{"vaultAddress": "0xdfc24b077bc1425ad1dea75bcb6f8158e10df303", "equity": "742500.08"}]`
	stakedJSON = `{"delegated": "12060.5", "undelegated": "0.0", "totalPendingWithdrawal": "0.0", "nPendingWithdrawals": 0}`
)

type infoServer struct {
	mu       sync.Mutex
	requests []InfoRequest
	fail     map[string]int // type -> status
}

func (s *infoServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/info", r.URL.Path)
		body, _ := io.ReadAll(r.Body)

		var req InfoRequest
		require.NoError(t, sonic.Unmarshal(body, &req))
		s.mu.Lock()
		s.requests = append(s.requests, req)
		status := s.fail[req.Type]
		s.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("rate limited"))
			return
		}
		_, _ = w.Write([]byte(answer(req.Type)))
	})
}

func answer(typ string) string {
	switch typ {
	case TypeClearinghouseState:
		return perpsJSON
	case TypeSpotClearinghouseState:
		return spotJSON
	case TypeUserVaultEquities:
		return vaultJSON
	case TypeDelegatorSummary:
		return stakedJSON
	}
	return "null"
}

func TestClient_FetchOverHTTP(t *testing.T) {
	s := &infoServer{}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	c := NewClient(NewHTTPTransport(srv.URL+"/", time.Second), time.Second)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	snap, err := c.Fetch(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, testAddress, snap.Address)
	assert.Equal(t, fixed, snap.FetchedAt)
	require.Len(t, snap.Positions, 2)

	mel := snap.Positions[0]
	assert.Equal(t, "MELANIA", mel.Token)
	assert.Equal(t, models.Long, mel.Direction)
	assert.InDelta(t, 2792478.4, mel.Value, 1e-6)
	assert.Equal(t, 5.0, mel.Leverage)
	assert.InDelta(t, 0.71745, mel.EntryPrice, 1e-9)
	require.True(t, mel.HasLiquidation())
	assert.InDelta(t, 0.65333, *mel.LiquidationPrice, 1e-9)
	assert.InDelta(t, 315.71, mel.Funding, 1e-9)

	eth := snap.Positions[1]
	assert.Equal(t, models.Short, eth.Direction)
	assert.False(t, eth.HasLiquidation())
	assert.InDelta(t, -1.5, eth.Funding, 1e-9)

	assert.Equal(t, map[string]float64{"USDC": 1500.25, "HYPE": 1200.5}, snap.Holdings)
	assert.Equal(t, 2, snap.Overview.Perps.Count)
	assert.InDelta(t, 2801478.4, snap.Overview.Perps.Value, 1e-6)
	assert.Equal(t, models.Bucket{Count: 2, Value: 24000}, snap.Overview.Spot)
	assert.Equal(t, 1, snap.Overview.Vault.Count)
	assert.InDelta(t, 742500.08, snap.Overview.Vault.Value, 1e-6)
	assert.Equal(t, models.Bucket{Count: 1, Value: 12060.5}, snap.Overview.Staked)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.requests, 4)
	for _, r := range s.requests {
		assert.Equal(t, testAddress, r.User)
	}
}

func TestClient_BestEffortQueriesMayFail(t *testing.T) {
	s := &infoServer{fail: map[string]int{
		TypeUserVaultEquities: http.StatusInternalServerError,
		TypeDelegatorSummary:  http.StatusTooManyRequests,
	}}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	c := NewClient(NewHTTPTransport(srv.URL, time.Second), time.Second)
	snap, err := c.Fetch(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Len(t, snap.Positions, 2)
	assert.Equal(t, models.Bucket{}, snap.Overview.Vault)
	assert.Equal(t, models.Bucket{}, snap.Overview.Staked)
}

func TestClient_RequiredQueryFailure(t *testing.T) {
	s := &infoServer{fail: map[string]int{TypeClearinghouseState: http.StatusTooManyRequests}}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	c := NewClient(NewHTTPTransport(srv.URL, time.Second), time.Second)
	snap, err := c.Fetch(context.Background(), testAddress)
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), TypeClearinghouseState)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"assetPositions": "oops"}`))
	}))
	defer srv.Close()

	c := NewClient(NewHTTPTransport(srv.URL, time.Second), time.Second)
	_, err := c.Fetch(context.Background(), testAddress)
	assert.ErrorContains(t, err, "decode")
}

func TestClient_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(NewHTTPTransport(srv.URL, 5*time.Second), 50*time.Millisecond)
	start := time.Now()
	_, err := c.Fetch(context.Background(), testAddress)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
