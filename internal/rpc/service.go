// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Fully qualified service and method names.
const (
	RecommendationsServiceName = "stats.service.dashboard.RecommendationsController"
	UserActionServiceName      = "stats.service.collector.UserActionController"

	GetRecommendationsForUserMethod = "/" + RecommendationsServiceName + "/GetRecommendationsForUser"
	GetSimilarEventsMethod          = "/" + RecommendationsServiceName + "/GetSimilarEvents"
	GetInteractionsCountMethod      = "/" + RecommendationsServiceName + "/GetInteractionsCount"
	CollectUserActionMethod         = "/" + UserActionServiceName + "/CollectUserAction"
)

// RecommendedEventSender is the server side of a result stream.
type RecommendedEventSender interface {
	Send(*RecommendedEvent) error
	Context() context.Context
}

// RecommendationsServer is implemented by the query service.
type RecommendationsServer interface {
	GetRecommendationsForUser(*UserPredictionsRequest, RecommendedEventSender) error
	GetSimilarEvents(*SimilarEventsRequest, RecommendedEventSender) error
	GetInteractionsCount(*InteractionsCountRequest, RecommendedEventSender) error
}

// UserActionServer is implemented by the collector service.
type UserActionServer interface {
	CollectUserAction(context.Context, *UserActionRequest) (*Empty, error)
}

type recommendedEventSender struct {
	grpc.ServerStream
}

func (s *recommendedEventSender) Send(e *RecommendedEvent) error {
	return s.ServerStream.SendMsg(e)
}

// streamHandler decodes the single request of a server-streaming call and
// hands it to call.
func streamHandler[Req any](call func(RecommendationsServer, *Req, RecommendedEventSender) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		req := new(Req)
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		return call(srv.(RecommendationsServer), req, &recommendedEventSender{stream})
	}
}

// RecommendationsServiceDesc describes the query service.
var RecommendationsServiceDesc = grpc.ServiceDesc{
	ServiceName: RecommendationsServiceName,
	HandlerType: (*RecommendationsServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "GetRecommendationsForUser",
			Handler: streamHandler(func(s RecommendationsServer, req *UserPredictionsRequest, out RecommendedEventSender) error {
				return s.GetRecommendationsForUser(req, out)
			}),
			ServerStreams: true,
		},
		{
			StreamName: "GetSimilarEvents",
			Handler: streamHandler(func(s RecommendationsServer, req *SimilarEventsRequest, out RecommendedEventSender) error {
				return s.GetSimilarEvents(req, out)
			}),
			ServerStreams: true,
		},
		{
			StreamName: "GetInteractionsCount",
			Handler: streamHandler(func(s RecommendationsServer, req *InteractionsCountRequest, out RecommendedEventSender) error {
				return s.GetInteractionsCount(req, out)
			}),
			ServerStreams: true,
		},
	},
	Metadata: "stats/dashboard.proto",
}

func collectUserActionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UserActionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserActionServer).CollectUserAction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CollectUserActionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UserActionServer).CollectUserAction(ctx, req.(*UserActionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// UserActionServiceDesc describes the collector service.
var UserActionServiceDesc = grpc.ServiceDesc{
	ServiceName: UserActionServiceName,
	HandlerType: (*UserActionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CollectUserAction", Handler: collectUserActionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stats/collector.proto",
}
