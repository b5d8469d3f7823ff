package wallet

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mr-tron/base58"

	"fundflow/rpc"
	"fundflow/tx"
)

func testSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestLocalSignerSignsAndVerifies(t *testing.T) {
	signer, err := NewLocalSigner(testSeed())
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	env := tx.Envelope{ContractID: "C1", Method: "donate", Source: signer.Address(), Sequence: 5, Fee: tx.BaseFee, Timeout: tx.EnvelopeTimeout, Network: "net"}

	signed, err := signer.SignTransaction(context.Background(), env, tx.SignOptions{Address: signer.Address(), Network: "net"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.Signer != signer.Address() {
		t.Fatalf("unexpected signer field %q", signed.Signer)
	}
	sig, err := base58.Decode(signed.Signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	ok, err := Verify(signer.Address(), env, sig)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}

	// A different envelope must fail verification.
	env.Sequence = 6
	ok, err = Verify(signer.Address(), env, sig)
	if err != nil || ok {
		t.Fatalf("signature valid for mutated envelope")
	}
}

func TestLocalSignerRejectsForeignAddress(t *testing.T) {
	signer, _ := NewLocalSigner(testSeed())
	_, err := signer.SignTransaction(context.Background(), tx.Envelope{}, tx.SignOptions{Address: "someone-else", Network: "net"})
	if !errors.Is(err, ErrWrongAddress) {
		t.Fatalf("expected ErrWrongAddress, got %v", err)
	}
}

func TestLocalSignerDeterministicAddress(t *testing.T) {
	a, _ := NewLocalSigner(testSeed())
	b, _ := NewLocalSigner(testSeed())
	if a.Address() != b.Address() {
		t.Fatalf("same seed produced different addresses")
	}
	other, _ := NewLocalSigner(bytes.Repeat([]byte{9}, 32))
	if other.Address() == a.Address() {
		t.Fatalf("different seeds collided")
	}
}

type balanceStub struct {
	account rpc.Account
	err     error
	calls   int
}

func (s *balanceStub) GetAccount(ctx context.Context, address string) (rpc.Account, error) {
	s.calls++
	return s.account, s.err
}

func TestCheckBalance(t *testing.T) {
	node := &balanceStub{account: rpc.Account{Balance: 5}}
	if _, err := CheckBalance(context.Background(), node, "GABC", 10); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	node.account.Balance = 10
	balance, err := CheckBalance(context.Background(), node, "GABC", 10)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if balance != 10 {
		t.Fatalf("unexpected balance %d", balance)
	}
}
