package ledgerrpc

import (
	"context"

	"github.com/near/borsh-go"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/logging"
)

// Bank is the part of *ledger.Bank the server exposes.
type Bank interface {
	Execute(ctx context.Context, tx *ledger.Transaction) (*ledger.Receipt, error)
	Account(ctx context.Context, addr address.Address) (ledger.Account, bool, error)
	Airdrop(ctx context.Context, addr address.Address, lamports uint64) (*ledger.Receipt, error)
	LatestBlockhash() ledger.Hash
	Slot() uint64
}

var _ Bank = (*ledger.Bank)(nil)

// Server exposes a Bank over the Ledger gRPC service.
type Server struct {
	UnimplementedLedgerServer
	Bank Bank

	// MaxAirdrop caps RequestAirdrop; zero disables the faucet.
	MaxAirdrop uint64
}

func (s *Server) SubmitTransaction(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Bank == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing bank")
	}
	tx, err := ledger.DecodeTransaction(in.GetValue())
	if err != nil {
		return nil, toStatus(err, nil)
	}
	receipt, err := s.Bank.Execute(ctx, tx)
	if err != nil {
		logging.FromContext(ctx).Info("transaction rejected",
			zap.Stringer("signature", tx.ID()),
			zap.String("kind", string(ledger.KindOf(err))),
			zap.String("check", ledger.CheckOf(err)),
			zap.String("step", ledger.StepOf(err)),
		)
		return nil, toStatus(err, receipt)
	}
	b, err := encodeReceipt(receipt)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode receipt")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) GetAccount(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Bank == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing bank")
	}
	addr, err := address.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	acct, found, err := s.Bank.Account(ctx, addr)
	if err != nil {
		return nil, toStatus(err, nil)
	}
	if !found {
		return nil, status.Errorf(codes.NotFound, "account %s not found", addr)
	}
	b, err := borsh.Serialize(accountReply{
		Lamports:   acct.Lamports,
		Owner:      acct.Owner,
		Executable: acct.Executable,
		Data:       acct.Data,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode account")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) GetLatestBlockhash(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Bank == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing bank")
	}
	b, err := borsh.Serialize(blockhashReply{Blockhash: s.Bank.LatestBlockhash(), Slot: s.Bank.Slot()})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode blockhash")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) RequestAirdrop(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Bank == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing bank")
	}
	var req airdropRequest
	if err := borsh.Deserialize(&req, in.GetValue()); err != nil {
		return nil, status.Error(codes.InvalidArgument, "decode airdrop request")
	}
	if s.MaxAirdrop == 0 {
		return nil, status.Error(codes.PermissionDenied, "airdrops disabled")
	}
	if req.Lamports == 0 || req.Lamports > s.MaxAirdrop {
		return nil, status.Errorf(codes.InvalidArgument, "airdrop must be between 1 and %d lamports", s.MaxAirdrop)
	}
	receipt, err := s.Bank.Airdrop(ctx, req.Address, req.Lamports)
	if err != nil {
		return nil, toStatus(err, nil)
	}
	b, err := encodeReceipt(receipt)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode receipt")
	}
	return wrapperspb.Bytes(b), nil
}
