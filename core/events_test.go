package core

import (
	"encoding/json"
	"testing"
)

func rawEvent(t *testing.T, topic []interface{}, value []interface{}, ledger uint64) ChainEvent {
	t.Helper()
	evt := ChainEvent{Ledger: ledger}
	for _, v := range topic {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal topic: %v", err)
		}
		evt.Topic = append(evt.Topic, raw)
	}
	for _, v := range value {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal value: %v", err)
		}
		evt.Value = append(evt.Value, raw)
	}
	return evt
}

func TestDecodeCampaignCreated(t *testing.T) {
	evt := rawEvent(t, []interface{}{"CampaignCreated", "alice", 7}, []interface{}{1200}, 42)
	decoded, ok := evt.Decoded().(CampaignCreated)
	if !ok {
		t.Fatalf("expected CampaignCreated, got %T", evt.Decoded())
	}
	if decoded.Actor != "alice" || decoded.CampaignID != 7 || decoded.Goal != 1200 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeDonationMade(t *testing.T) {
	evt := rawEvent(t, []interface{}{"DonationMade", "bob", 3}, []interface{}{120, 840}, 43)
	decoded, ok := evt.Decoded().(DonationMade)
	if !ok {
		t.Fatalf("expected DonationMade, got %T", evt.Decoded())
	}
	if decoded.Amount != 120 || decoded.NewTotal != 840 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeCampaignClosed(t *testing.T) {
	evt := rawEvent(t, []interface{}{"CampaignClosed", 4}, []interface{}{true}, 44)
	decoded, ok := evt.Decoded().(CampaignClosed)
	if !ok {
		t.Fatalf("expected CampaignClosed, got %T", evt.Decoded())
	}
	if decoded.CampaignID != 4 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestDecodeUnknownKindFallsBack(t *testing.T) {
	evt := rawEvent(t, []interface{}{"RefundIssued", "carol", 9}, []interface{}{55}, 45)
	if _, ok := evt.Decoded().(OtherEvent); !ok {
		t.Fatalf("expected OtherEvent, got %T", evt.Decoded())
	}
	if evt.Kind() != "Other" {
		t.Fatalf("unexpected kind %q", evt.Kind())
	}
}

func TestDecodeMalformedTopicsFallBack(t *testing.T) {
	cases := []ChainEvent{
		{},
		rawEvent(t, []interface{}{"CampaignCreated"}, nil, 1),
		rawEvent(t, []interface{}{"DonationMade", "dan", "not-a-number"}, []interface{}{1, 2}, 2),
		rawEvent(t, []interface{}{123}, nil, 3),
	}
	for i, evt := range cases {
		if _, ok := evt.Decoded().(OtherEvent); !ok {
			t.Fatalf("case %d: expected OtherEvent, got %T", i, evt.Decoded())
		}
	}
}

func TestComputeStats(t *testing.T) {
	campaigns := []Campaign{
		{ID: 1, Raised: 840},
		{ID: 2, Raised: 1450},
	}
	events := []ChainEvent{
		rawEvent(t, []interface{}{"CampaignCreated", "alice", 1}, []interface{}{1200}, 1),
		rawEvent(t, []interface{}{"DonationMade", "bob", 1}, []interface{}{120, 840}, 2),
		rawEvent(t, []interface{}{"CampaignClosed", 2}, []interface{}{true}, 3),
		rawEvent(t, []interface{}{"SomethingElse"}, nil, 4),
	}
	stats := ComputeStats(campaigns, events)
	if stats.TotalRaised != 2290 {
		t.Fatalf("total raised = %d", stats.TotalRaised)
	}
	if stats.TotalCampaigns != 2 {
		t.Fatalf("total campaigns = %d", stats.TotalCampaigns)
	}
	if stats.TotalActions != 2 {
		t.Fatalf("total actions = %d", stats.TotalActions)
	}
}
