package grpcreg

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/idreg/internal/rpcx"
	"xdao.co/idreg/model"
)

// Client calls a remote registry. Errors raised by the registry come back as
// *model.Error carrying the server-side Kind and RuleID.
type Client struct {
	cc     *grpc.ClientConn
	client RegistryClient

	// Timeout bounds each call when non-zero, on top of the caller's ctx.
	Timeout time.Duration
}

// DialOptions is shared with the KV client.
type DialOptions = rpcx.DialOptions

// Dial connects to a registry daemon. The dial timeout also becomes the
// per-call timeout.
func Dial(target string, opts DialOptions) (*Client, error) {
	cc, err := rpcx.Dial(target, opts)
	if err != nil {
		return nil, err
	}
	c := NewClient(cc)
	c.Timeout = opts.Timeout
	return c, nil
}

// NewClient wraps an existing connection. Close closes cc.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewRegistryClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) SetAdmin(ctx context.Context, admin model.Identifier) error {
	b, err := model.EncodeIdentifier(admin)
	if err != nil {
		return err
	}
	ctx, cancel := rpcx.CallContext(ctx, c.Timeout)
	defer cancel()
	_, err = c.client.SetAdmin(ctx, wrapperspb.Bytes(b))
	return fromStatus(err)
}

func (c *Client) GetAdmin(ctx context.Context) (model.Identifier, error) {
	ctx, cancel := rpcx.CallContext(ctx, c.Timeout)
	defer cancel()
	reply, err := c.client.GetAdmin(ctx, &emptypb.Empty{})
	if err != nil {
		return model.Identifier{}, fromStatus(err)
	}
	return model.DecodeIdentifier(reply.GetValue())
}

func (c *Client) GetIden(ctx context.Context, key model.IdenKey) (model.Identity, error) {
	ctx, cancel := rpcx.CallContext(ctx, c.Timeout)
	defer cancel()
	reply, err := c.client.GetIden(ctx, wrapperspb.Bytes(key[:]))
	if err != nil {
		return model.Identity{}, fromStatus(err)
	}
	return model.DecodeIdentity(reply.GetValue())
}

func (c *Client) WriteIden(ctx context.Context, p WriteIdenParams) error {
	b, err := encodeWriteIden(p)
	if err != nil {
		return err
	}
	ctx, cancel := rpcx.CallContext(ctx, c.Timeout)
	defer cancel()
	_, err = c.client.WriteIden(ctx, wrapperspb.Bytes(b))
	return fromStatus(err)
}

func (c *Client) Nonce(ctx context.Context, signer model.Identifier) (uint64, error) {
	b, err := model.EncodeIdentifier(signer)
	if err != nil {
		return 0, err
	}
	ctx, cancel := rpcx.CallContext(ctx, c.Timeout)
	defer cancel()
	reply, err := c.client.Nonce(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return 0, fromStatus(err)
	}
	return reply.GetValue(), nil
}
