package service

import (
	"context"
	"encoding/json"
)

// Info request types used by the snapshot fetch.
const (
	TypeClearinghouseState     = "clearinghouseState"
	TypeSpotClearinghouseState = "spotClearinghouseState"
	TypeUserVaultEquities      = "userVaultEquities"
	TypeDelegatorSummary       = "delegatorSummary"
)

// InfoRequest is the body of a POST /info call and the payload of a ws post.
type InfoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// Transport executes one info request and returns the raw JSON answer.
type Transport interface {
	Info(ctx context.Context, req InfoRequest) (json.RawMessage, error)
	Close() error
}
