// Package invoker runs the guarded invocation pipeline: precondition
// checks, an optimistic ledger record, submission to finality, and a
// single reconciliation of the record with the terminal outcome.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fundflow/explorer"
	"fundflow/ledger"
	"fundflow/notify"
	"fundflow/observability"
	"fundflow/rpc"
	"fundflow/tx"
)

// Precondition failures. Neither leaves a ledger record behind.
var (
	ErrNoWallet   = errors.New("invoker: no wallet configured")
	ErrNoContract = errors.New("invoker: no contract configured")
)

// Submitter is the slice of the transaction pipeline the invoker drives.
type Submitter interface {
	Submit(ctx context.Context, req tx.Request) (tx.Receipt, error)
}

// ContractSource yields the currently configured contract identity.
type ContractSource interface {
	ContractID() string
}

// Invocation describes one guarded contract call.
type Invocation struct {
	Method string
	Label  string
	Args   []interface{}
}

// Invoker owns the invocation lifecycle around a submitter.
type Invoker struct {
	submitter Submitter
	ledger    *ledger.Ledger
	hub       *notify.Hub
	contracts ContractSource
	signer    tx.Signer

	explorerNet  string
	explorerBase string
	logger       *slog.Logger
	metrics      *observability.Metrics
	now          func() time.Time
	// onSettled fires once per terminal outcome, success or failure, so
	// chain state can refresh ahead of the next periodic cycle.
	onSettled func()
}

// Option customises invoker construction.
type Option func(*Invoker)

// WithSigner installs the wallet. A nil signer leaves invocations guarded
// by ErrNoWallet.
func WithSigner(signer tx.Signer) Option {
	return func(inv *Invoker) { inv.signer = signer }
}

// WithExplorerBase overrides the explorer link root.
func WithExplorerBase(base string) Option {
	return func(inv *Invoker) {
		if base != "" {
			inv.explorerBase = base
		}
	}
}

// WithLogger supplies a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) {
		if logger != nil {
			inv.logger = logger
		}
	}
}

// WithMetrics attaches invocation instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(inv *Invoker) { inv.metrics = m }
}

// WithSettledHook registers the refresh trigger fired after every
// terminal outcome.
func WithSettledHook(fn func()) Option {
	return func(inv *Invoker) { inv.onSettled = fn }
}

func withClock(now func() time.Time) Option {
	return func(inv *Invoker) { inv.now = now }
}

// New constructs an invoker over the given submitter, ledger, contract
// source, and notification hub. explorerNetwork names the explorer
// sub-path used when building transaction links.
func New(submitter Submitter, led *ledger.Ledger, contracts ContractSource, hub *notify.Hub, explorerNetwork string, opts ...Option) *Invoker {
	inv := &Invoker{
		submitter:    submitter,
		ledger:       led,
		hub:          hub,
		contracts:    contracts,
		explorerNet:  explorerNetwork,
		explorerBase: explorer.DefaultBase,
		logger:       slog.Default(),
		now:          time.Now,
		onSettled:    func() {},
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// HasWallet reports whether a signer is installed.
func (inv *Invoker) HasWallet() bool { return inv.signer != nil }

// WalletAddress returns the installed signer's address, or empty.
func (inv *Invoker) WalletAddress() string {
	if inv.signer == nil {
		return ""
	}
	return inv.signer.Address()
}

// Invoke runs one guarded invocation. Precondition failures return before
// any record or network traffic exists; past that point exactly one ledger
// record is created and reconciled exactly once, one notification is
// published for the terminal outcome, and the refresh hook fires
// regardless of outcome. The submitter's error, if any, is returned to
// the caller after reconciliation.
func (inv *Invoker) Invoke(ctx context.Context, call Invocation) (ledger.Record, error) {
	if inv.signer == nil {
		inv.hub.Publish(notify.KindError, "Wallet required", "Connect a wallet before invoking the contract.")
		return ledger.Record{}, ErrNoWallet
	}
	contractID := inv.contracts.ContractID()
	if contractID == "" {
		inv.hub.Publish(notify.KindError, "Contract required", "Configure a contract ID before invoking.")
		return ledger.Record{}, ErrNoContract
	}

	started := inv.now()
	rec, err := inv.ledger.Append(call.Label, call.Method, started.UTC())
	if err != nil {
		return ledger.Record{}, fmt.Errorf("invoker: record invocation: %w", err)
	}

	receipt, submitErr := inv.submitter.Submit(ctx, tx.Request{
		ContractID: contractID,
		Method:     call.Method,
		Args:       call.Args,
		Signer:     inv.signer,
		Source:     inv.signer.Address(),
	})
	elapsed := inv.now().Sub(started).Seconds()

	if submitErr != nil {
		return inv.settleFailure(rec, call, submitErr, elapsed, "")
	}
	if receipt.Status == rpc.TxFailed {
		return inv.settleFailure(rec, call, fmt.Errorf("invoker: transaction %s failed on-chain", receipt.Hash), elapsed, receipt.Hash)
	}
	return inv.settleSuccess(rec, call, receipt, elapsed)
}

func (inv *Invoker) settleSuccess(rec ledger.Record, call Invocation, receipt tx.Receipt, elapsed float64) (ledger.Record, error) {
	completed := inv.now().UTC()
	updated, err := inv.ledger.Update(rec.Seq, ledger.Patch{
		Hash:        receipt.Hash,
		Status:      ledger.StatusSuccess,
		CompletedAt: &completed,
		ExplorerURL: explorer.TxURL(inv.explorerBase, inv.explorerNet, receipt.Hash),
	})
	if err != nil {
		inv.logger.Error("reconcile invocation record", "seq", rec.Seq, "error", err)
		updated = rec
	}
	inv.logger.Info("invocation confirmed", "method", call.Method, "hash", receipt.Hash)
	inv.hub.Publish(notify.KindSuccess, call.Label, fmt.Sprintf("Confirmed in transaction %s.", receipt.Hash))
	inv.metrics.ObserveInvocation(call.Method, "success", elapsed)
	inv.onSettled()
	return updated, nil
}

func (inv *Invoker) settleFailure(rec ledger.Record, call Invocation, cause error, elapsed float64, hash string) (ledger.Record, error) {
	completed := inv.now().UTC()
	patch := ledger.Patch{
		Status:      ledger.StatusFailed,
		CompletedAt: &completed,
		Error:       cause.Error(),
	}
	// A broadcast rejection still carries the network-assigned hash; keep
	// the placeholder only when no real hash ever existed.
	var bcast *tx.BroadcastError
	if errors.As(cause, &bcast) && bcast.Hash != "" {
		patch.Hash = bcast.Hash
	} else if hash != "" {
		patch.Hash = hash
	}

	updated, err := inv.ledger.Update(rec.Seq, patch)
	if err != nil {
		inv.logger.Error("reconcile invocation record", "seq", rec.Seq, "error", err)
		updated = rec
	}
	inv.logger.Warn("invocation failed", "method", call.Method, "seq", rec.Seq, "error", cause)
	inv.hub.Publish(notify.KindError, call.Label+" failed", cause.Error())
	inv.metrics.ObserveInvocation(call.Method, "failed", elapsed)
	inv.onSettled()
	return updated, cause
}
