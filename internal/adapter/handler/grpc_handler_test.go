package handler

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/storefront-bot/storefront/internal/adapter/storage"
	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/core/service"
)

func startGRPC(t *testing.T, token string) (*grpc.ClientConn, *storage.SQLAdapter) {
	t.Helper()
	store := newTestStore(t)
	ctx := context.Background()
	for _, item := range []domain.Item{
		{Name: "Classic", Description: "Beef patty", Price: 500},
		{Name: "Cheese", Description: "Double cheese", Price: 300},
	} {
		if _, err := store.CreateItem(ctx, item); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	h := NewGRPCHandler(service.NewCatalogService(store), "RUB", discardLogger())
	srv, _ := NewGRPCServer(h, token, discardLogger())

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, store
}

func TestGRPC_ListItems(t *testing.T) {
	conn, _ := startGRPC(t, testAdminToken)
	client := NewCatalogAdminClient(conn, testAdminToken)

	list, err := client.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(list.GetValues()) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list.GetValues()))
	}
	first := list.GetValues()[0].GetStructValue().GetFields()
	if first["name"].GetStringValue() != "Classic" || first["price"].GetNumberValue() != 500 {
		t.Errorf("unexpected first item %v", first)
	}
	if first["price_display"].GetStringValue() != "5.00 RUB" {
		t.Errorf("price_display = %q", first["price_display"].GetStringValue())
	}
}

func TestGRPC_RemoveItem(t *testing.T) {
	conn, store := startGRPC(t, testAdminToken)
	client := NewCatalogAdminClient(conn, testAdminToken)
	ctx := context.Background()

	store.AddToCart(ctx, 100, 1, 2)
	if err := client.RemoveItem(ctx, 1); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, err := store.GetItem(ctx, 1); err == nil {
		t.Error("item still present")
	}
	if entries, _ := store.ListCart(ctx, 100); len(entries) != 0 {
		t.Errorf("cart not cascaded: %+v", entries)
	}

	tests := []struct {
		id   int64
		want codes.Code
	}{
		{1, codes.NotFound},
		{0, codes.InvalidArgument},
		{-5, codes.InvalidArgument},
	}
	for _, tt := range tests {
		err := client.RemoveItem(ctx, tt.id)
		if status.Code(err) != tt.want {
			t.Errorf("RemoveItem(%d) code = %v, want %v", tt.id, status.Code(err), tt.want)
		}
	}
}

func TestGRPC_Auth(t *testing.T) {
	conn, _ := startGRPC(t, testAdminToken)
	ctx := context.Background()

	if _, err := NewCatalogAdminClient(conn, "").ListItems(ctx); status.Code(err) != codes.Unauthenticated {
		t.Errorf("no token: code = %v", status.Code(err))
	}
	if _, err := NewCatalogAdminClient(conn, "wrong").ListItems(ctx); status.Code(err) != codes.Unauthenticated {
		t.Errorf("wrong token: code = %v", status.Code(err))
	}

	// Health stays reachable without credentials.
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: healthServiceName})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v", resp.GetStatus())
	}
}

func TestGRPC_AdminDisabledWithoutToken(t *testing.T) {
	conn, _ := startGRPC(t, "")

	_, err := NewCatalogAdminClient(conn, "anything").ListItems(context.Background())
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("code = %v, want PermissionDenied", status.Code(err))
	}
}
