package tx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fundflow/rpc"
)

// ErrSigningRejected indicates the external signer declined the envelope.
var ErrSigningRejected = errors.New("tx: signing rejected")

// ErrConfirmationTimeout indicates the confirmation poll budget was
// exhausted before the network reported a terminal status. The
// transaction may still confirm later; callers must treat the outcome as
// unknown, not failed on-chain.
var ErrConfirmationTimeout = errors.New("tx: confirmation timed out")

// BroadcastError reports a synchronous rejection of the signed envelope by
// the network. Diagnostic carries the node-provided error identifier when
// one was returned.
type BroadcastError struct {
	Hash       string
	Diagnostic string
}

func (e *BroadcastError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("tx: broadcast rejected (%s), hash=%s", e.Diagnostic, e.Hash)
	}
	return fmt.Sprintf("tx: broadcast rejected, hash=%s", e.Hash)
}

// NodeClient is the slice of the RPC surface the submitter needs.
type NodeClient interface {
	GetAccount(ctx context.Context, address string) (rpc.Account, error)
	SendTransaction(ctx context.Context, signedEnvelope string) (rpc.SendResult, error)
	GetTransaction(ctx context.Context, hash string) (rpc.TransactionResult, error)
}

// Receipt is the terminal outcome of a submission.
type Receipt struct {
	Hash   string
	Status string // rpc.TxSuccess or rpc.TxFailed
	Result json.RawMessage
}

// Request describes one invocation to submit.
type Request struct {
	ContractID string
	Method     string
	Args       []interface{}
	Signer     Signer
	Source     string
}

// Submitter submits envelopes and blocks until finality.
type Submitter struct {
	node    NodeClient
	network string
	logger  *slog.Logger

	pollInterval time.Duration
	maxAttempts  int
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option customises submitter behaviour.
type Option func(*Submitter)

// WithPollInterval overrides the confirmation polling cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Submitter) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithMaxPollAttempts bounds the confirmation loop. The zero default is
// replaced with a budget covering roughly five minutes at the default
// cadence.
func WithMaxPollAttempts(attempts int) Option {
	return func(s *Submitter) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithLogger supplies a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withSleep replaces the inter-poll sleep; tests use it to avoid real
// waiting.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Submitter) { s.sleep = fn }
}

// NewSubmitter constructs a submitter bound to a node client and network
// identity string.
func NewSubmitter(node NodeClient, network string, opts ...Option) *Submitter {
	s := &Submitter{
		node:         node,
		network:      network,
		logger:       slog.Default(),
		pollInterval: 2 * time.Second,
		maxAttempts:  150,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sleep == nil {
		s.sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return s
}

// Submit runs the full lifecycle for one invocation and blocks until the
// network reports a terminal status. Error classification:
// ErrSigningRejected when the wallet declines, *BroadcastError when the
// network rejects the envelope inline, ErrConfirmationTimeout when the
// poll budget runs out, and wrapped transport errors otherwise.
func (s *Submitter) Submit(ctx context.Context, req Request) (Receipt, error) {
	if req.Signer == nil {
		return Receipt{}, fmt.Errorf("tx: signer required")
	}
	if req.ContractID == "" {
		return Receipt{}, fmt.Errorf("tx: contract id required")
	}

	account, err := s.node.GetAccount(ctx, req.Source)
	if err != nil {
		return Receipt{}, fmt.Errorf("tx: resolve account %s: %w", req.Source, err)
	}

	env := Envelope{
		ContractID: req.ContractID,
		Method:     req.Method,
		Args:       req.Args,
		Source:     req.Source,
		Sequence:   account.Sequence + 1,
		Fee:        BaseFee,
		Timeout:    EnvelopeTimeout,
		Network:    s.network,
	}

	signed, err := req.Signer.SignTransaction(ctx, env, SignOptions{Address: req.Source, Network: s.network})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrSigningRejected, err)
	}
	encoded, err := signed.Encode()
	if err != nil {
		return Receipt{}, err
	}

	sent, err := s.node.SendTransaction(ctx, encoded)
	if err != nil {
		return Receipt{}, fmt.Errorf("tx: broadcast: %w", err)
	}
	if sent.ErrorResult != "" {
		return Receipt{}, &BroadcastError{Hash: sent.Hash, Diagnostic: sent.ErrorResult}
	}

	s.logger.Info("transaction broadcast", "hash", sent.Hash, "method", req.Method)
	return s.awaitFinality(ctx, sent.Hash)
}

func (s *Submitter) awaitFinality(ctx context.Context, hash string) (Receipt, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.pollInterval); err != nil {
				return Receipt{}, fmt.Errorf("tx: confirmation wait: %w", err)
			}
		}
		result, err := s.node.GetTransaction(ctx, hash)
		if err != nil {
			return Receipt{}, fmt.Errorf("tx: poll %s: %w", hash, err)
		}
		switch result.Status {
		case rpc.TxSuccess, rpc.TxFailed:
			return Receipt{Hash: hash, Status: result.Status, Result: result.Result}, nil
		}
	}
	return Receipt{}, fmt.Errorf("%w: hash=%s attempts=%d", ErrConfirmationTimeout, hash, s.maxAttempts)
}
