package tx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"fundflow/rpc"
)

type stubNode struct {
	account     rpc.Account
	accountErr  error
	sendResult  rpc.SendResult
	sendErr     error
	pollResults []rpc.TransactionResult
	pollErr     error

	sentEnvelopes []string
	polls         int
}

func (s *stubNode) GetAccount(ctx context.Context, address string) (rpc.Account, error) {
	return s.account, s.accountErr
}

func (s *stubNode) SendTransaction(ctx context.Context, signedEnvelope string) (rpc.SendResult, error) {
	s.sentEnvelopes = append(s.sentEnvelopes, signedEnvelope)
	return s.sendResult, s.sendErr
}

func (s *stubNode) GetTransaction(ctx context.Context, hash string) (rpc.TransactionResult, error) {
	if s.pollErr != nil {
		return rpc.TransactionResult{}, s.pollErr
	}
	idx := s.polls
	s.polls++
	if idx >= len(s.pollResults) {
		return rpc.TransactionResult{Status: rpc.TxPending}, nil
	}
	return s.pollResults[idx], nil
}

type stubSigner struct {
	address string
	reject  bool

	signedEnv  *Envelope
	signedOpts *SignOptions
}

func (s *stubSigner) Address() string { return s.address }

func (s *stubSigner) SignTransaction(ctx context.Context, env Envelope, opts SignOptions) (SignedEnvelope, error) {
	if s.reject {
		return SignedEnvelope{}, errors.New("user declined")
	}
	s.signedEnv = &env
	s.signedOpts = &opts
	return NewSignedEnvelope(env, []byte("sig"), s.address)
}

func noSleep() Option {
	return withSleep(func(ctx context.Context, d time.Duration) error { return nil })
}

func TestSubmitConfirmsOnThirdPoll(t *testing.T) {
	node := &stubNode{
		account:    rpc.Account{Address: "GABC", Sequence: 41},
		sendResult: rpc.SendResult{Hash: "H1"},
		pollResults: []rpc.TransactionResult{
			{Status: rpc.TxPending},
			{Status: rpc.TxPending},
			{Status: rpc.TxSuccess, Result: json.RawMessage(`{"id":1}`)},
		},
	}
	signer := &stubSigner{address: "GABC"}
	sub := NewSubmitter(node, "Test Net ; 2026", noSleep())

	receipt, err := sub.Submit(context.Background(), Request{
		ContractID: "C1",
		Method:     "create_campaign",
		Args:       []interface{}{"title", "desc", 1200},
		Signer:     signer,
		Source:     "GABC",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Hash != "H1" || receipt.Status != rpc.TxSuccess {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if node.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", node.polls)
	}
	if signer.signedEnv.Sequence != 42 {
		t.Fatalf("expected sequence 42, got %d", signer.signedEnv.Sequence)
	}
	if signer.signedEnv.Fee != BaseFee || signer.signedEnv.Timeout != EnvelopeTimeout {
		t.Fatalf("envelope fee/timeout not fixed: %+v", signer.signedEnv)
	}
	if signer.signedOpts.Network != "Test Net ; 2026" {
		t.Fatalf("signer not bound to network: %+v", signer.signedOpts)
	}
}

func TestSubmitSigningRejected(t *testing.T) {
	node := &stubNode{account: rpc.Account{Sequence: 1}}
	sub := NewSubmitter(node, "net", noSleep())

	_, err := sub.Submit(context.Background(), Request{
		ContractID: "C1",
		Method:     "donate",
		Signer:     &stubSigner{address: "GABC", reject: true},
		Source:     "GABC",
	})
	if !errors.Is(err, ErrSigningRejected) {
		t.Fatalf("expected ErrSigningRejected, got %v", err)
	}
	if len(node.sentEnvelopes) != 0 {
		t.Fatalf("rejected signature still broadcast")
	}
}

func TestSubmitInlineBroadcastErrorSkipsPolling(t *testing.T) {
	node := &stubNode{
		account:    rpc.Account{Sequence: 1},
		sendResult: rpc.SendResult{Hash: "H9", ErrorResult: "tx_bad_seq"},
	}
	sub := NewSubmitter(node, "net", noSleep())

	_, err := sub.Submit(context.Background(), Request{
		ContractID: "C1",
		Method:     "donate",
		Signer:     &stubSigner{address: "GABC"},
		Source:     "GABC",
	})
	var bErr *BroadcastError
	if !errors.As(err, &bErr) {
		t.Fatalf("expected BroadcastError, got %v", err)
	}
	if bErr.Hash != "H9" || bErr.Diagnostic != "tx_bad_seq" {
		t.Fatalf("unexpected broadcast error %+v", bErr)
	}
	if node.polls != 0 {
		t.Fatalf("poll loop entered after inline rejection")
	}
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	node := &stubNode{
		account:    rpc.Account{Sequence: 1},
		sendResult: rpc.SendResult{Hash: "H2"},
	}
	sub := NewSubmitter(node, "net", noSleep(), WithMaxPollAttempts(5))

	_, err := sub.Submit(context.Background(), Request{
		ContractID: "C1",
		Method:     "donate",
		Signer:     &stubSigner{address: "GABC"},
		Source:     "GABC",
	})
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
	if node.polls != 5 {
		t.Fatalf("expected 5 polls, got %d", node.polls)
	}
}

func TestSubmitAccountLookupFailure(t *testing.T) {
	node := &stubNode{accountErr: fmt.Errorf("connection refused")}
	sub := NewSubmitter(node, "net", noSleep())

	_, err := sub.Submit(context.Background(), Request{
		ContractID: "C1",
		Method:     "donate",
		Signer:     &stubSigner{address: "GABC"},
		Source:     "GABC",
	})
	if err == nil || errors.Is(err, ErrSigningRejected) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(node.sentEnvelopes) != 0 {
		t.Fatalf("broadcast attempted after failed account lookup")
	}
}

func TestSignedEnvelopeEncodeRoundTrip(t *testing.T) {
	env := Envelope{ContractID: "C1", Method: "donate", Source: "GABC", Sequence: 7, Fee: BaseFee, Timeout: EnvelopeTimeout, Network: "net"}
	signed, err := NewSignedEnvelope(env, []byte{1, 2, 3}, "GABC")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	encoded, err := signed.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode wire form: %v", err)
	}
	var decoded SignedEnvelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal wire form: %v", err)
	}
	if decoded != signed {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, signed)
	}

	d1, err := env.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, _ := env.Digest()
	if d1 != d2 {
		t.Fatalf("digest not deterministic")
	}
}
