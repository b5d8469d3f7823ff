// Package seed embeds the demonstration dataset served while the chain
// has never produced real data.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"fundflow/core"
)

//go:embed dataset.toml
var datasetTOML string

type campaignRow struct {
	ID          uint32 `toml:"id"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Goal        int64  `toml:"goal"`
	Raised      int64  `toml:"raised"`
	Owner       string `toml:"owner"`
	Active      bool   `toml:"active"`
}

type eventRow struct {
	Topic  []interface{} `toml:"topic"`
	Value  []interface{} `toml:"value"`
	Ledger uint64        `toml:"ledger"`
}

type dataset struct {
	Campaigns []campaignRow `toml:"campaigns"`
	Events    []eventRow    `toml:"events"`
}

var (
	once    sync.Once
	loaded  core.Snapshot
	loadErr error
)

// Snapshot returns the demonstration campaigns and events. The embedded
// dataset is fixed at build time, so a decode failure is a programming
// error and panics.
func Snapshot() core.Snapshot {
	once.Do(func() { loaded, loadErr = decode() })
	if loadErr != nil {
		panic(fmt.Sprintf("seed: embedded dataset invalid: %v", loadErr))
	}
	out := core.Snapshot{
		Campaigns: append([]core.Campaign(nil), loaded.Campaigns...),
		Events:    append([]core.ChainEvent(nil), loaded.Events...),
		Seeded:    true,
	}
	out.Stats = core.ComputeStats(out.Campaigns, out.Events)
	return out
}

func decode() (core.Snapshot, error) {
	var raw dataset
	if err := toml.Unmarshal([]byte(datasetTOML), &raw); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode dataset: %w", err)
	}
	snap := core.Snapshot{Seeded: true}
	for _, row := range raw.Campaigns {
		snap.Campaigns = append(snap.Campaigns, core.Campaign{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Goal:        row.Goal,
			Raised:      row.Raised,
			Owner:       row.Owner,
			Active:      row.Active,
		})
	}
	for _, row := range raw.Events {
		topic, err := rawSegments(row.Topic)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("event ledger %d: %w", row.Ledger, err)
		}
		value, err := rawSegments(row.Value)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("event ledger %d: %w", row.Ledger, err)
		}
		snap.Events = append(snap.Events, core.ChainEvent{Topic: topic, Value: value, Ledger: row.Ledger})
	}
	return snap, nil
}

func rawSegments(values []interface{}) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(raw))
	}
	return out, nil
}
