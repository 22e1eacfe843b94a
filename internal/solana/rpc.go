package solana

import "context"

// RPCClient defines the Solana RPC operations the mirror pipeline needs.
type RPCClient interface {
	// GetLatestBlockhash fetches a fresh blockhash at processed commitment.
	GetLatestBlockhash(ctx context.Context) (Hash, error)

	// SendTransaction submits a signed transaction and returns the
	// signature accepted by the node. Acceptance is not confirmation.
	SendTransaction(ctx context.Context, tx *VersionedTransaction) (string, error)
}
