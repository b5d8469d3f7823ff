package wallet

import (
	"context"
	"errors"
	"fmt"

	"fundflow/rpc"
)

// ErrInsufficientBalance is the caller-side pre-flight failure. It is
// raised before any invocation record is created or envelope submitted.
var ErrInsufficientBalance = errors.New("wallet: insufficient balance")

// AccountReader is the slice of the RPC surface the pre-flight needs.
type AccountReader interface {
	GetAccount(ctx context.Context, address string) (rpc.Account, error)
}

// CheckBalance verifies the account holds at least min units before a
// mutating invocation is attempted.
func CheckBalance(ctx context.Context, node AccountReader, address string, min int64) (int64, error) {
	account, err := node.GetAccount(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("wallet: fetch balance for %s: %w", address, err)
	}
	if account.Balance < min {
		return account.Balance, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, account.Balance, min)
	}
	return account.Balance, nil
}
