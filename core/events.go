package core

import "encoding/json"

// Event kind tags as emitted by the contract. The first topic element
// carries the tag; unrecognised tags decode as OtherEvent so future
// contract versions never crash the gateway.
const (
	KindCampaignCreated = "CampaignCreated"
	KindDonationMade    = "DonationMade"
	KindCampaignClosed  = "CampaignClosed"
)

// ChainEvent is a raw contract event as returned by the node's event log.
// Topic and Value retain the wire encoding; Ledger orders events by the
// network's monotonically increasing ledger sequence.
type ChainEvent struct {
	Topic  []json.RawMessage `json:"topic"`
	Value  []json.RawMessage `json:"value"`
	Ledger uint64            `json:"ledger"`
}

// CampaignCreated records a new campaign with its funding goal.
type CampaignCreated struct {
	Actor      string
	CampaignID uint32
	Goal       int64
}

// DonationMade records a single contribution and the resulting total.
type DonationMade struct {
	Actor      string
	CampaignID uint32
	Amount     int64
	NewTotal   int64
}

// CampaignClosed records a campaign being closed by its owner.
type CampaignClosed struct {
	CampaignID uint32
}

// OtherEvent carries an event the gateway does not interpret.
type OtherEvent struct {
	RawTopic []json.RawMessage
	RawValue []json.RawMessage
}

// Decoded interprets the event's topic/value sequences and returns exactly
// one of CampaignCreated, DonationMade, CampaignClosed, or OtherEvent.
func (e ChainEvent) Decoded() interface{} {
	other := OtherEvent{RawTopic: e.Topic, RawValue: e.Value}
	if len(e.Topic) == 0 {
		return other
	}
	var kind string
	if err := json.Unmarshal(e.Topic[0], &kind); err != nil {
		return other
	}
	switch kind {
	case KindCampaignCreated:
		if len(e.Topic) < 3 || len(e.Value) < 1 {
			return other
		}
		var evt CampaignCreated
		if json.Unmarshal(e.Topic[1], &evt.Actor) != nil ||
			json.Unmarshal(e.Topic[2], &evt.CampaignID) != nil ||
			json.Unmarshal(e.Value[0], &evt.Goal) != nil {
			return other
		}
		return evt
	case KindDonationMade:
		if len(e.Topic) < 3 || len(e.Value) < 2 {
			return other
		}
		var evt DonationMade
		if json.Unmarshal(e.Topic[1], &evt.Actor) != nil ||
			json.Unmarshal(e.Topic[2], &evt.CampaignID) != nil ||
			json.Unmarshal(e.Value[0], &evt.Amount) != nil ||
			json.Unmarshal(e.Value[1], &evt.NewTotal) != nil {
			return other
		}
		return evt
	case KindCampaignClosed:
		if len(e.Topic) < 2 {
			return other
		}
		var evt CampaignClosed
		if json.Unmarshal(e.Topic[1], &evt.CampaignID) != nil {
			return other
		}
		return evt
	default:
		return other
	}
}

// Kind returns the event's tag string, or "Other" when unrecognised.
func (e ChainEvent) Kind() string {
	switch e.Decoded().(type) {
	case CampaignCreated:
		return KindCampaignCreated
	case DonationMade:
		return KindDonationMade
	case CampaignClosed:
		return KindCampaignClosed
	default:
		return "Other"
	}
}
