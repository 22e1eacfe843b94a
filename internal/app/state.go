// Package app holds the process-wide dependencies built once at startup.
package app

import (
	"fmt"

	"solana-mirror/internal/solana"
)

// State bundles the chain-facing dependencies. It is constructed once from
// configuration and passed explicitly; nothing mutates it after startup.
type State struct {
	RPC    solana.RPCClient
	Wallet *solana.Keypair

	// WalletPubkey caches Wallet.Pubkey() for request building and logs.
	// The private key itself must never appear in logs or errors.
	WalletPubkey solana.Pubkey
}

// NewState wires a state from an RPC client and the signing keypair.
func NewState(rpc solana.RPCClient, wallet *solana.Keypair) (*State, error) {
	if rpc == nil {
		return nil, fmt.Errorf("rpc client is required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet keypair is required")
	}
	return &State{
		RPC:          rpc,
		Wallet:       wallet,
		WalletPubkey: wallet.Pubkey(),
	}, nil
}
