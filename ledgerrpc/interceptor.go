package ledgerrpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"xdao.co/nftmint/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "x-request-id"

// UnaryServerInterceptor tags every call with a request id (the caller's, if
// it sent one), stores a request-scoped logger in the context and logs the
// outcome.
func UnaryServerInterceptor(base *zap.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		id := requestID(ctx)
		logger := base.With(zap.String("request_id", id), zap.String("method", info.FullMethod))
		ctx = logging.WithLogger(ctx, logger)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

		resp, err := handler(ctx, req)

		logger.Info("rpc",
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDHeader); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}
