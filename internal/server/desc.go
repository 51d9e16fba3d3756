package server

import (
	"context"

	"google.golang.org/grpc"
)

const (
	OrderServiceName   = "voiceorders.v1.OrderService"
	HistoryServiceName = "voiceorders.v1.HistoryService"
)

// unary builds a method descriptor that decodes Req and dispatches to call
// on the registered server implementation S.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			})
		},
	}
}

// OrderServiceServer is implemented by OrderServer.
type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderResponse, error)
	Transcribe(context.Context, *TranscribeRequest) (*TranscribeResponse, error)
	ParseTranscription(context.Context, *ParseTranscriptionRequest) (*ItemsResponse, error)
	MatchArticles(context.Context, *MatchArticlesRequest) (*ItemsResponse, error)
	ProcessText(context.Context, *ProcessTextRequest) (*OrderWithItemsResponse, error)
	SubmitAudioOrder(context.Context, *SubmitAudioOrderRequest) (*OrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderWithItemsResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	ConfirmItem(context.Context, *ConfirmItemRequest) (*ItemResponse, error)
	UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error)
	ExportOrder(context.Context, *ExportOrderRequest) (*ExportOrderResponse, error)
}

// HistoryServiceServer is implemented by HistoryServer.
type HistoryServiceServer interface {
	ListHistory(context.Context, *ListHistoryRequest) (*HistoryResponse, error)
	SearchHistory(context.Context, *SearchHistoryRequest) (*HistoryResponse, error)
	AddHistory(context.Context, *AddHistoryRequest) (*ArticleResponse, error)
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(OrderServiceName, "CreateOrder", OrderServiceServer.CreateOrder),
		unary(OrderServiceName, "Transcribe", OrderServiceServer.Transcribe),
		unary(OrderServiceName, "ParseTranscription", OrderServiceServer.ParseTranscription),
		unary(OrderServiceName, "MatchArticles", OrderServiceServer.MatchArticles),
		unary(OrderServiceName, "ProcessText", OrderServiceServer.ProcessText),
		unary(OrderServiceName, "SubmitAudioOrder", OrderServiceServer.SubmitAudioOrder),
		unary(OrderServiceName, "GetOrder", OrderServiceServer.GetOrder),
		unary(OrderServiceName, "ListOrders", OrderServiceServer.ListOrders),
		unary(OrderServiceName, "ConfirmItem", OrderServiceServer.ConfirmItem),
		unary(OrderServiceName, "UpdateItem", OrderServiceServer.UpdateItem),
		unary(OrderServiceName, "ExportOrder", OrderServiceServer.ExportOrder),
	},
	Metadata: "voiceorders/v1/orders.json",
}

var HistoryServiceDesc = grpc.ServiceDesc{
	ServiceName: HistoryServiceName,
	HandlerType: (*HistoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(HistoryServiceName, "ListHistory", HistoryServiceServer.ListHistory),
		unary(HistoryServiceName, "SearchHistory", HistoryServiceServer.SearchHistory),
		unary(HistoryServiceName, "AddHistory", HistoryServiceServer.AddHistory),
	},
	Metadata: "voiceorders/v1/history.json",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func RegisterHistoryServiceServer(s grpc.ServiceRegistrar, srv HistoryServiceServer) {
	s.RegisterService(&HistoryServiceDesc, srv)
}

// Client calls both services over one connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, service, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c, OrderServiceName, "CreateOrder", in, opts...)
}

func (c *Client) Transcribe(ctx context.Context, in *TranscribeRequest, opts ...grpc.CallOption) (*TranscribeResponse, error) {
	return invoke[TranscribeResponse](ctx, c, OrderServiceName, "Transcribe", in, opts...)
}

func (c *Client) ParseTranscription(ctx context.Context, in *ParseTranscriptionRequest, opts ...grpc.CallOption) (*ItemsResponse, error) {
	return invoke[ItemsResponse](ctx, c, OrderServiceName, "ParseTranscription", in, opts...)
}

func (c *Client) MatchArticles(ctx context.Context, in *MatchArticlesRequest, opts ...grpc.CallOption) (*ItemsResponse, error) {
	return invoke[ItemsResponse](ctx, c, OrderServiceName, "MatchArticles", in, opts...)
}

func (c *Client) ProcessText(ctx context.Context, in *ProcessTextRequest, opts ...grpc.CallOption) (*OrderWithItemsResponse, error) {
	return invoke[OrderWithItemsResponse](ctx, c, OrderServiceName, "ProcessText", in, opts...)
}

func (c *Client) SubmitAudioOrder(ctx context.Context, in *SubmitAudioOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c, OrderServiceName, "SubmitAudioOrder", in, opts...)
}

func (c *Client) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderWithItemsResponse, error) {
	return invoke[OrderWithItemsResponse](ctx, c, OrderServiceName, "GetOrder", in, opts...)
}

func (c *Client) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c, OrderServiceName, "ListOrders", in, opts...)
}

func (c *Client) ConfirmItem(ctx context.Context, in *ConfirmItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c, OrderServiceName, "ConfirmItem", in, opts...)
}

func (c *Client) UpdateItem(ctx context.Context, in *UpdateItemRequest, opts ...grpc.CallOption) (*ItemResponse, error) {
	return invoke[ItemResponse](ctx, c, OrderServiceName, "UpdateItem", in, opts...)
}

func (c *Client) ExportOrder(ctx context.Context, in *ExportOrderRequest, opts ...grpc.CallOption) (*ExportOrderResponse, error) {
	return invoke[ExportOrderResponse](ctx, c, OrderServiceName, "ExportOrder", in, opts...)
}

func (c *Client) ListHistory(ctx context.Context, in *ListHistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c, HistoryServiceName, "ListHistory", in, opts...)
}

func (c *Client) SearchHistory(ctx context.Context, in *SearchHistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c, HistoryServiceName, "SearchHistory", in, opts...)
}

func (c *Client) AddHistory(ctx context.Context, in *AddHistoryRequest, opts ...grpc.CallOption) (*ArticleResponse, error) {
	return invoke[ArticleResponse](ctx, c, HistoryServiceName, "AddHistory", in, opts...)
}
