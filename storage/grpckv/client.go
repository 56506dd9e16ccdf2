package grpckv

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/idreg/internal/rpcx"
	"xdao.co/idreg/storage"
)

// Client implements storage.Store over a KV gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client KVClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var (
	_ storage.Store   = (*Client)(nil)
	_ storage.Batcher = (*Client)(nil)
)

// DialOptions is shared with the registry client.
type DialOptions = rpcx.DialOptions

// Dial connects to a daemon serving the KV service.
func Dial(target string, opts DialOptions) (*Client, error) {
	cc, err := rpcx.Dial(target, opts)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes cc.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewKVClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Has(key []byte) bool {
	if c == nil || c.client == nil || len(key) == 0 {
		return false
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.Bytes(key))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) Get(key []byte) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, storage.ErrClosed
	}
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.Bytes(key))
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func (c *Client) Set(key, value []byte) error {
	return c.SetBatch([]storage.Entry{{Key: key, Value: value}})
}

// SetBatch sends all entries in one RPC. The server applies them atomically
// when its own store supports batches.
func (c *Client) SetBatch(entries []storage.Entry) error {
	if c == nil || c.client == nil {
		return storage.ErrClosed
	}
	for _, e := range entries {
		if err := storage.CheckKey(e.Key); err != nil {
			return err
		}
	}
	payload, err := encodeBatch(entries)
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	if _, err := c.client.SetBatch(ctx, wrapperspb.Bytes(payload)); err != nil {
		return mapRPC(err)
	}
	return nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	return rpcx.CallContext(context.Background(), c.Timeout)
}
