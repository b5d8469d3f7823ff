// Package chainsync maintains the local view of on-chain campaign state:
// read-only contract queries plus the periodic refresh loop that keeps an
// atomically swapped snapshot current.
package chainsync

import (
	"context"
	"fmt"
	"log/slog"

	"fundflow/core"
)

// recentEventLimit caps how far back the event query reaches.
const recentEventLimit = 50

// NodeClient is the read-only slice of the RPC surface the fetcher needs.
type NodeClient interface {
	SimulateCall(ctx context.Context, contractID, method string, args []interface{}, out interface{}) error
	GetEvents(ctx context.Context, contractID string, limit int) ([]core.ChainEvent, error)
}

// ContractSource yields the currently configured contract identity.
type ContractSource interface {
	ContractID() string
}

// Fetcher reads campaign state through simulated contract calls. All
// methods return empty results without touching the network while no
// contract is configured.
type Fetcher struct {
	node      NodeClient
	contracts ContractSource
	logger    *slog.Logger
}

// NewFetcher constructs a fetcher over a node client and contract source.
func NewFetcher(node NodeClient, contracts ContractSource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{node: node, contracts: contracts, logger: logger}
}

// ListCampaignIDs queries the contract's campaign index.
func (f *Fetcher) ListCampaignIDs(ctx context.Context) ([]uint32, error) {
	contractID := f.contracts.ContractID()
	if contractID == "" {
		return nil, nil
	}
	var ids []uint32
	if err := f.node.SimulateCall(ctx, contractID, "list_campaigns", nil, &ids); err != nil {
		return nil, fmt.Errorf("chainsync: list campaigns: %w", err)
	}
	return ids, nil
}

// FetchCampaign queries a single campaign by id.
func (f *Fetcher) FetchCampaign(ctx context.Context, id uint32) (core.Campaign, error) {
	contractID := f.contracts.ContractID()
	if contractID == "" {
		return core.Campaign{}, fmt.Errorf("chainsync: no contract configured")
	}
	var campaign core.Campaign
	if err := f.node.SimulateCall(ctx, contractID, "get_campaign", []interface{}{id}, &campaign); err != nil {
		return core.Campaign{}, fmt.Errorf("chainsync: get campaign %d: %w", id, err)
	}
	return campaign, nil
}

// FetchAllCampaigns resolves the full campaign set. A campaign whose
// detail query fails is skipped and logged; only the index query itself is
// fatal.
func (f *Fetcher) FetchAllCampaigns(ctx context.Context) ([]core.Campaign, error) {
	ids, err := f.ListCampaignIDs(ctx)
	if err != nil {
		return nil, err
	}
	campaigns := make([]core.Campaign, 0, len(ids))
	for _, id := range ids {
		campaign, err := f.FetchCampaign(ctx, id)
		if err != nil {
			f.logger.Warn("skipping unreadable campaign", "id", id, "error", err)
			continue
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, nil
}

// FetchRecentEvents returns the most recent contract events, newest last,
// capped at recentEventLimit.
func (f *Fetcher) FetchRecentEvents(ctx context.Context) ([]core.ChainEvent, error) {
	contractID := f.contracts.ContractID()
	if contractID == "" {
		return nil, nil
	}
	events, err := f.node.GetEvents(ctx, contractID, recentEventLimit)
	if err != nil {
		return nil, fmt.Errorf("chainsync: fetch events: %w", err)
	}
	return events, nil
}
