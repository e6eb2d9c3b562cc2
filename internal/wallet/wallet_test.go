package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

func TestNewFromBase58(t *testing.T) {
	generated := solana.NewWallet()

	w, err := New(generated.PrivateKey.String())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !w.PublicKey.Equals(generated.PublicKey()) {
		t.Errorf("public key mismatch: %s vs %s", w.PublicKey, generated.PublicKey())
	}
	if w.String() != generated.PublicKey().String() {
		t.Errorf("String() = %q", w.String())
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	if _, err := New("not-base58-0OIl"); err == nil {
		t.Error("expected an error for non-base58 input")
	}
	// Valid base58 but the wrong length for an ed25519 keypair.
	if _, err := New("3mJr7AoUXx2Wqd"); err == nil {
		t.Error("expected an error for a short key")
	}
}

func TestSignTransaction(t *testing.T) {
	generated := solana.NewWallet()
	w, err := New(generated.PrivateKey.String())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, w.PublicKey, w.PublicKey).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey),
	)
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}

	if err := w.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction failed: %v", err)
	}
	if len(tx.Signatures) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(tx.Signatures))
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}
