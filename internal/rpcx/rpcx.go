// Package rpcx holds the client-side gRPC plumbing shared by the registry and
// KV clients.
package rpcx

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOptions configures Dial.
type DialOptions struct {
	// Timeout bounds the wait for the connection to become ready. Zero
	// dials lazily: the first RPC connects.
	Timeout time.Duration

	// MaxMsgBytes sets both send and receive limits when non-zero.
	MaxMsgBytes int

	// Extra is appended after the defaults (tests pass a bufconn dialer here).
	Extra []grpc.DialOption
}

// Dial opens a plaintext connection to target.
func Dial(target string, opts DialOptions) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
			grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
		))
	}
	dialOpts = append(dialOpts, opts.Extra...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		return cc, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	if err := WaitReady(ctx, cc); err != nil {
		cc.Close()
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return cc, nil
}

// WaitReady blocks until cc is Ready or ctx ends.
func WaitReady(ctx context.Context, cc *grpc.ClientConn) error {
	cc.Connect()
	for {
		s := cc.GetState()
		if s == connectivity.Ready {
			return nil
		}
		if s == connectivity.Shutdown {
			return fmt.Errorf("connection shut down")
		}
		if !cc.WaitForStateChange(ctx, s) {
			return ctx.Err()
		}
	}
}

// CallContext returns a context for one RPC: parent bounded by timeout when
// timeout is positive. A nil parent means context.Background.
func CallContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
