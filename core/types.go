package core

// Campaign mirrors the on-chain campaign record. The gateway treats the
// network as the source of truth; local copies are read-only snapshots
// replaced wholesale on every sync.
type Campaign struct {
	ID          uint32 `json:"campaign_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Goal        int64  `json:"goal"`
	Raised      int64  `json:"raised"`
	Owner       string `json:"owner"`
	Active      bool   `json:"is_active"`
}

// Stats aggregates the current snapshot. Values are always recomputed from
// the full campaign and event sets, never carried forward incrementally.
type Stats struct {
	TotalRaised    int64 `json:"totalRaised"`
	TotalCampaigns int   `json:"totalCampaigns"`
	TotalActions   int   `json:"totalActions"`
}

// Snapshot is the complete local view of contract state. Readers always
// observe a whole snapshot: campaigns, events, and stats from the same sync
// cycle.
type Snapshot struct {
	Campaigns []Campaign   `json:"campaigns"`
	Events    []ChainEvent `json:"events"`
	Stats     Stats        `json:"stats"`
	// Seeded marks the snapshot as the non-authoritative demonstration
	// dataset installed before any real chain data has been observed.
	Seeded bool `json:"seeded"`
}

// ComputeStats derives aggregate statistics from a campaign/event pair.
func ComputeStats(campaigns []Campaign, events []ChainEvent) Stats {
	stats := Stats{TotalCampaigns: len(campaigns)}
	for _, c := range campaigns {
		stats.TotalRaised += c.Raised
	}
	for _, evt := range events {
		switch evt.Decoded().(type) {
		case CampaignCreated, DonationMade:
			stats.TotalActions++
		}
	}
	return stats
}
