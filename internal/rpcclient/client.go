// Package rpcclient wraps gagliardetto/solana-go's RPC client with
// the two calls soltrace's ingestion engines need: fetching a
// transaction by signature and listing signatures for a program.
// soltrace never signs or sends transactions, only reads them.
package rpcclient

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client wraps a Solana JSON-RPC client.
type Client struct {
	rpc *rpc.Client
}

// New creates a Client against endpoint (an http(s):// RPC URL).
func New(endpoint string) *Client {
	return &Client{rpc: rpc.New(endpoint)}
}

// GetTransaction fetches a transaction and its metadata by signature,
// at the given commitment level.
func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", sig, err)
	}
	return result, nil
}

// GetSignaturesForAddress returns up to limit signatures for
// programID, most recent first. Single page only; there is no
// `before` cursor loop.
func (c *Client) GetSignaturesForAddress(ctx context.Context, programID solana.PublicKey, limit int, commitment rpc.CommitmentType) ([]*rpc.TransactionSignature, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: commitment,
	}
	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, programID, opts)
	if err != nil {
		return nil, fmt.Errorf("get signatures for %s: %w", programID, err)
	}
	return out, nil
}

// Close releases resources held by the underlying RPC client.
func (c *Client) Close() error {
	return nil
}
