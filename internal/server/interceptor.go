package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
)

const (
	// UserIDHeader carries the caller's user id. Authentication happens
	// upstream; the value is trusted as is.
	UserIDHeader    = "x-user-id"
	RequestIDHeader = "x-request-id"
)

// UnaryInterceptor attaches request and user ids to the context, maps
// application errors to gRPC statuses and records call metrics. Calls to
// services outside voiceorders.v1, such as health checks, pass through
// without a user id.
func UnaryInterceptor(logger *slog.Logger, metrics *observe.Metrics) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/voiceorders.v1.") {
			return handler(ctx, req)
		}
		start := time.Now()
		md, _ := metadata.FromIncomingContext(ctx)

		requestID := first(md, RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		var (
			resp   any
			err    error
			appErr error
		)
		userID := first(md, UserIDHeader)
		if userID == "" {
			err = status.Error(codes.Unauthenticated, UserIDHeader+" metadata is required")
		} else {
			resp, appErr = handler(common.WithUserID(ctx, userID), req)
			err = common.ToStatus(appErr)
		}

		code := status.Code(err)
		metrics.RecordRPC(ctx, info.FullMethod, code.String(), time.Since(start))
		attrs := []any{
			"method", info.FullMethod,
			"request_id", requestID,
			"user_id", userID,
			"code", code.String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if appErr != nil {
			attrs = append(attrs, "error", appErr)
		}
		switch code {
		case codes.OK:
			logger.Info("rpc.ok", attrs...)
		case codes.Internal, codes.Unknown, codes.Unavailable:
			logger.Error("rpc.failed", attrs...)
		default:
			logger.Warn("rpc.rejected", attrs...)
		}
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
