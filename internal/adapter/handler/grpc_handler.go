package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/core/service"
)

const (
	catalogAdminService = "storefront.admin.v1.CatalogAdmin"
	listItemsMethod     = "/" + catalogAdminService + "/ListItems"
	removeItemMethod    = "/" + catalogAdminService + "/RemoveItem"
	healthServiceName   = "storefront"
)

// CatalogAdminServer is the administrator RPC surface. Messages are protobuf
// well-known types so no generated code is needed.
type CatalogAdminServer interface {
	ListItems(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	RemoveItem(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

var CatalogAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogAdminService,
	HandlerType: (*CatalogAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListItems", Handler: listItemsHandler},
		{MethodName: "RemoveItem", Handler: removeItemHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/admin/v1/catalog_admin.proto",
}

func listItemsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogAdminServer).ListItems(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listItemsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogAdminServer).ListItems(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func removeItemHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogAdminServer).RemoveItem(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: removeItemMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogAdminServer).RemoveItem(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

type GRPCHandler struct {
	catalog  *service.CatalogService
	currency string
	logger   *slog.Logger
}

func NewGRPCHandler(catalog *service.CatalogService, currency string, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{catalog: catalog, currency: currency, logger: logger.With("component", "grpc")}
}

func (h *GRPCHandler) ListItems(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	items, err := h.catalog.ListItems(ctx)
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	values := make([]any, 0, len(items))
	for _, item := range items {
		values = append(values, map[string]any{
			"id":            item.ID,
			"name":          item.Name,
			"description":   item.Description,
			"price":         item.Price,
			"price_display": domain.FormatMoney(item.Price, h.currency),
		})
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return list, nil
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	id := req.GetValue()
	if id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "item id must be positive")
	}

	err := h.catalog.RemoveItem(ctx, id)
	if errors.Is(err, domain.ErrItemNotFound) {
		return nil, status.Errorf(codes.NotFound, "item %d not found", id)
	}
	if err != nil {
		h.logger.Error("failed to remove item", "item_id", id, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	h.logger.Info("catalog item removed", "item_id", id)
	return &emptypb.Empty{}, nil
}

// NewGRPCServer registers the admin service behind bearer-token auth plus
// the standard health service, which stays unauthenticated.
func NewGRPCServer(h *GRPCHandler, adminToken string, logger *slog.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			loggingInterceptor(logger),
			authInterceptor(adminToken),
		),
	)
	srv.RegisterService(&CatalogAdminServiceDesc, h)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return srv, healthServer
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		logger.Debug("rpc call", "method", info.FullMethod)
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("rpc error", "method", info.FullMethod, "code", status.Code(err))
		}
		return resp, err
	}
}

func authInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+catalogAdminService+"/") {
			return handler(ctx, req)
		}
		if token == "" {
			return nil, status.Error(codes.PermissionDenied, "admin api disabled")
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		got := extractBearer(md)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(ctx, req)
	}
}

func extractBearer(md metadata.MD) string {
	for _, value := range md.Get("authorization") {
		lower := strings.ToLower(value)
		if strings.HasPrefix(lower, "bearer ") {
			return strings.TrimSpace(value[len("bearer "):])
		}
	}
	return ""
}

// CatalogAdminClient calls the admin service with a bearer token.
type CatalogAdminClient struct {
	conn  grpc.ClientConnInterface
	token string
}

func NewCatalogAdminClient(conn grpc.ClientConnInterface, token string) *CatalogAdminClient {
	return &CatalogAdminClient{conn: conn, token: token}
}

func (c *CatalogAdminClient) withToken(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func (c *CatalogAdminClient) ListItems(ctx context.Context) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(c.withToken(ctx), listItemsMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogAdminClient) RemoveItem(ctx context.Context, id int64) error {
	return c.conn.Invoke(c.withToken(ctx), removeItemMethod, wrapperspb.Int64(id), new(emptypb.Empty))
}
