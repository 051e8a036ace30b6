package ledgerrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/near/borsh-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
)

// Client talks to a Ledger gRPC service. Errors the bank raised come back as
// *ledger.Error, so callers can branch on Kind, Check and Step exactly as
// they would in-process.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

// Dial connects to target (host:port) without transport security.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewLedgerClient(cc), Timeout: opts.Timeout}, nil
}

// NewClient wraps an existing connection; Close is then the caller's job.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{client: NewLedgerClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// SubmitTransaction sends tx and waits for it to commit or fail. As with
// ledger.Bank.Execute, a failed transaction may still return a receipt
// carrying its signature and program logs.
func (c *Client) SubmitTransaction(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error) {
	b, err := ledger.EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.SubmitTransaction(ctx, wrapperspb.Bytes(b))
	if err != nil {
		logs, err := fromStatus(err)
		var receipt *ledger.Receipt
		if ledger.KindOf(err) != "" {
			receipt = &ledger.Receipt{Signature: tx.ID(), Logs: logs}
		}
		return receipt, err
	}
	receipt, err := decodeReceipt(reply.GetValue())
	if err != nil {
		return nil, fmt.Errorf("ledgerrpc: decode receipt: %w", err)
	}
	return receipt, nil
}

// Account returns the committed account at addr; found is false when the
// server has nothing stored there.
func (c *Client) Account(ctx context.Context, addr address.Address) (ledger.Account, bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.GetAccount(ctx, wrapperspb.String(addr.String()))
	if status.Code(err) == codes.NotFound {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		_, err = fromStatus(err)
		return ledger.Account{}, false, err
	}
	var a accountReply
	if err := borsh.Deserialize(&a, reply.GetValue()); err != nil {
		return ledger.Account{}, false, fmt.Errorf("ledgerrpc: decode account: %w", err)
	}
	return ledger.Account{Lamports: a.Lamports, Owner: a.Owner, Executable: a.Executable, Data: a.Data}, true, nil
}

// LatestBlockhash returns the blockhash new transactions should reference
// and the server's current slot.
func (c *Client) LatestBlockhash(ctx context.Context) (ledger.Hash, uint64, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.GetLatestBlockhash(ctx, &emptypb.Empty{})
	if err != nil {
		_, err = fromStatus(err)
		return ledger.Hash{}, 0, err
	}
	var r blockhashReply
	if err := borsh.Deserialize(&r, reply.GetValue()); err != nil {
		return ledger.Hash{}, 0, fmt.Errorf("ledgerrpc: decode blockhash: %w", err)
	}
	return r.Blockhash, r.Slot, nil
}

// Airdrop asks the server's faucet to credit addr.
func (c *Client) Airdrop(ctx context.Context, addr address.Address, lamports uint64) (*ledger.Receipt, error) {
	b, err := borsh.Serialize(airdropRequest{Address: addr, Lamports: lamports})
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.RequestAirdrop(ctx, wrapperspb.Bytes(b))
	if err != nil {
		_, err = fromStatus(err)
		return nil, err
	}
	receipt, err := decodeReceipt(reply.GetValue())
	if err != nil {
		return nil, fmt.Errorf("ledgerrpc: decode receipt: %w", err)
	}
	return receipt, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
