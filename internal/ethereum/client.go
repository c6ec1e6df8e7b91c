package ethereum

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Caller is the JSON-RPC surface the client needs. *rpc.Client satisfies it.
type Caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Client is a read-only Ethereum JSON-RPC client. It never signs or sends
// transactions.
type Client struct {
	rpc   Caller
	close func()
}

func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	return &Client{rpc: ec.Client(), close: ec.Close}, nil
}

// NewClient wraps an existing caller, e.g. a test double.
func NewClient(c Caller) *Client {
	return &Client{rpc: c, close: func() {}}
}

func (c *Client) Close() { c.close() }

// CallContract performs a read-only eth_call against the latest block and
// returns the raw result.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := map[string]any{
		"to":   to.Hex(),
		"data": fmt.Sprintf("0x%x", data),
	}
	var result string
	if err := c.rpc.CallContext(ctx, &result, "eth_call", msg, "latest"); err != nil {
		return nil, err
	}
	return common.FromHex(result), nil
}
