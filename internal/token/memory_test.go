package token

import (
	"context"
	"testing"

	"github.com/predictiq/engine/internal/ledger"
)

func TestMemoryTokenTransfer(t *testing.T) {
	tok := NewMemoryToken(map[string]ledger.Amount{"alice": ledger.NewAmount(1000)})
	ctx := context.Background()

	if err := tok.Transfer(ctx, "alice", "bob", ledger.NewAmount(400)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	aliceBal, _ := tok.Balance(ctx, "alice")
	bobBal, _ := tok.Balance(ctx, "bob")
	if aliceBal.Int64() != 600 {
		t.Fatalf("alice balance: got %d, want 600", aliceBal.Int64())
	}
	if bobBal.Int64() != 400 {
		t.Fatalf("bob balance: got %d, want 400", bobBal.Int64())
	}
}

func TestMemoryTokenInsufficientBalance(t *testing.T) {
	tok := NewMemoryToken(map[string]ledger.Amount{"alice": ledger.NewAmount(100)})
	err := tok.Transfer(context.Background(), "alice", "bob", ledger.NewAmount(500))
	if err != ledger.ErrInsufficientBalance {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestMemoryTokenCredit(t *testing.T) {
	tok := NewMemoryToken(nil)
	tok.Credit("carol", ledger.NewAmount(250))
	bal, _ := tok.Balance(context.Background(), "carol")
	if bal.Int64() != 250 {
		t.Fatalf("got %d, want 250", bal.Int64())
	}
}
