// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package rpc

import (
	"context"
	"path"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tomtom215/ewm-stats/internal/logging"
	"github.com/tomtom215/ewm-stats/internal/metrics"
)

// correlationKey is the metadata key of the correlation id. gRPC metadata
// keys are lower case.
var correlationKey = strings.ToLower(logging.CorrelationIDHeader)

// incomingCorrelationID returns the caller's id or a fresh one.
func incomingCorrelationID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(correlationKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return logging.NewCorrelationID()
}

// serverStream overrides the context of a wrapped stream.
type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context { return s.ctx }

// CorrelationUnaryInterceptor attaches a correlation id to the request
// context and echoes it in the response header.
func CorrelationUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := incomingCorrelationID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(correlationKey, id))
		return handler(logging.ContextWithCorrelationID(ctx, id), req)
	}
}

// CorrelationStreamInterceptor is the streaming form of
// CorrelationUnaryInterceptor.
func CorrelationStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		id := incomingCorrelationID(ss.Context())
		_ = ss.SetHeader(metadata.Pairs(correlationKey, id))
		return handler(srv, &serverStream{ServerStream: ss, ctx: logging.ContextWithCorrelationID(ss.Context(), id)})
	}
}

// ObserveUnaryInterceptor logs each call and records it in the query
// metrics.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func ObserveUnaryInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(ctx, logger, info.FullMethod, start, err)
		return resp, err
	}
}

// ObserveStreamInterceptor is the streaming form of ObserveUnaryInterceptor.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func ObserveStreamInterceptor(logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		observe(ss.Context(), logger, info.FullMethod, start, err)
		return err
	}
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func observe(ctx context.Context, logger zerolog.Logger, fullMethod string, start time.Time, err error) {
	duration := time.Since(start)
	code := status.Code(err)
	method := path.Base(fullMethod)
	metrics.RecordQuery("grpc", method, code.String(), duration)

	ev := logger.Debug()
	switch code {
	case codes.OK, codes.InvalidArgument, codes.Canceled:
	default:
		ev = logger.Warn().Err(err)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	ev.Str("method", method).
		Str("code", code.String()).
		Dur("duration", duration).
		Msg("rpc")
}

// RecoveryUnaryInterceptor turns a handler panic into codes.Internal.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func RecoveryUnaryInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStreamInterceptor is the streaming form of
// RecoveryUnaryInterceptor.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func RecoveryStreamInterceptor(logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func recovered(logger zerolog.Logger, method string, r any) error {
	logger.Error().
		Str("method", method).
		Interface("panic", r).
		Bytes("stack", debug.Stack()).
		Msg("rpc handler panicked")
	return status.Error(codes.Internal, "internal error")
}
