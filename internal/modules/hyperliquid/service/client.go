package service

import (
	"context"
	"time"

	"hyper_monitor/internal/helper"
	"hyper_monitor/internal/models"
	"hyper_monitor/pkg/logger"
	"hyper_monitor/pkg/tracing"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Client builds address snapshots from the public info API.
type Client struct {
	transport Transport
	timeout   time.Duration
	now       func() time.Time
}

func NewClient(transport Transport, timeout time.Duration) *Client {
	return &Client{transport: transport, timeout: timeout, now: time.Now}
}

// Fetch queries perps, spot, vault and staking state concurrently. Perps and
// spot are required; vault and staking fall back to zero on failure.
func (c *Client) Fetch(ctx context.Context, address string) (snap *models.Snapshot, err error) {
	span, ctx := tracing.StartSpan(ctx, "hyperliquid.fetch")
	span.SetTag("address", address)
	defer func() { tracing.Finish(span, err) }()

	var (
		perps  clearinghouseState
		spot   spotClearinghouseState
		vaults []vaultEquity
		staked delegatorSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.query(gctx, TypeClearinghouseState, address, &perps) })
	g.Go(func() error { return c.query(gctx, TypeSpotClearinghouseState, address, &spot) })
	g.Go(func() error {
		if err := c.query(gctx, TypeUserVaultEquities, address, &vaults); err != nil {
			logger.Warn("[HL] %s vault equities unavailable: %v", helper.ShortAddress(address), err)
			vaults = nil
		}
		return nil
	})
	g.Go(func() error {
		if err := c.query(gctx, TypeDelegatorSummary, address, &staked); err != nil {
			logger.Warn("[HL] %s delegator summary unavailable: %v", helper.ShortAddress(address), err)
			staked = delegatorSummary{}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	positions := perps.positions()
	holdings, spotBucket := spot.holdings()
	overview := models.Overview{
		Perps:  perpsBucket(positions),
		Spot:   spotBucket,
		Vault:  vaultBucket(vaults),
		Staked: stakedBucket(staked),
	}
	return models.NewSnapshot(address, positions, holdings, overview, c.now()), nil
}

func (c *Client) query(ctx context.Context, typ, address string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.transport.Info(ctx, InfoRequest{Type: typ, User: address})
	if err != nil {
		return errors.Wrap(err, typ)
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "%s: decode", typ)
	}
	return nil
}
