package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"github.com/your-org/storefront-backend/internal/testutil"
)

const (
	customerID uint = 7
	adminID    uint = 1
)

var testAddress = Address{Street: "12 Harbour Rd", City: "Leith", ZipCode: "EH6 6LX", Country: "UK"}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t,
		&user.User{}, &product.Product{}, &inventory.InventoryMovement{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{},
	)
	cfg := &config.Config{Checkout: config.CheckoutConfig{DefaultPageSize: 20, MaxPageSize: 100}}
	return NewService(db, cfg, inventory.NewLedger(db, nil), nil), db
}

func createProduct(t *testing.T, db *gorm.DB, price string, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		Name:     "Modern Table Lamp",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: product.CategoryBedroom,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func placeOrder(t *testing.T, svc *Service, userID uint, p *product.Product, quantity int) *Order {
	t.Helper()
	o := NewOrder(userID, testAddress, []Line{{ProductID: p.ID, Name: p.Name, Quantity: quantity, UnitPrice: p.Price}})
	require.NoError(t, svc.Create(context.Background(), o))
	return o
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p product.Product
	require.NoError(t, db.Unscoped().First(&p, id).Error)
	return p.Stock
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatus("returned").IsValid())
}

func TestNewOrderFreezesTotal(t *testing.T) {
	o := NewOrder(customerID, testAddress, []Line{
		{ProductID: 1, Name: "Ceramic Dinnerware Set", Quantity: 2, UnitPrice: decimal.RequireFromString("89.99")},
		{ProductID: 2, Name: "Microfiber Cleaning Cloths", Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")},
	})

	assert.Equal(t, OrderStatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("239.95")))
	assert.True(t, o.Items[0].LineTotal.Equal(decimal.RequireFromString("179.98")))
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, o.OrderNumber)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, OrderStatusPending, o.StatusHistory[0].Status)
}

func TestAddressValidate(t *testing.T) {
	assert.NoError(t, testAddress.Validate())

	err := Address{Street: "1 Main St", Country: "US"}.Validate()
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, err.Error(), "city, zipCode")
}

func TestCreateRejectsMismatchedTotal(t *testing.T) {
	svc, db := newTestService(t)
	p := createProduct(t, db, "10.00", 5)

	o := NewOrder(customerID, testAddress, []Line{{ProductID: p.ID, Name: p.Name, Quantity: 1, UnitPrice: p.Price}})
	o.TotalAmount = decimal.RequireFromString("9.00")

	err := svc.Create(context.Background(), o)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	var count int64
	require.NoError(t, db.Model(&Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetForUser(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, "59.99", 5)
	o := placeOrder(t, svc, customerID, p, 2)

	got, err := svc.GetForUser(ctx, o.ID, customerID, false)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Modern Table Lamp", got.Items[0].ProductName)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("119.98")))
	require.Len(t, got.StatusHistory, 1)

	_, err = svc.GetForUser(ctx, o.ID, customerID+1, false)
	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)

	_, err = svc.GetForUser(ctx, o.ID, adminID, true)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
}

func TestListNewestFirst(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, "10.00", 50)

	first := placeOrder(t, svc, customerID, p, 1)
	second := placeOrder(t, svc, customerID, p, 2)
	other := placeOrder(t, svc, customerID+1, p, 3)
	require.NoError(t, db.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)

	mine, err := svc.ListForUser(ctx, customerID, pagination.Request{})
	require.NoError(t, err)
	require.Len(t, mine.Orders, 2)
	assert.Equal(t, second.ID, mine.Orders[0].ID)
	assert.Equal(t, first.ID, mine.Orders[1].ID)
	assert.EqualValues(t, 2, mine.Pagination.Total)

	all, err := svc.List(ctx, ListRequest{Request: pagination.Request{Page: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, all.Orders, 2)
	assert.EqualValues(t, 3, all.Pagination.Total)
	assert.True(t, all.Pagination.HasNext)

	_, err = svc.SetStatus(ctx, other.ID, &UpdateStatusRequest{Status: OrderStatusProcessing}, adminID)
	require.NoError(t, err)

	processing, err := svc.List(ctx, ListRequest{Status: OrderStatusProcessing})
	require.NoError(t, err)
	require.Len(t, processing.Orders, 1)
	assert.Equal(t, other.ID, processing.Orders[0].ID)

	_, err = svc.List(ctx, ListRequest{Status: "lost"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSetStatusFollowsLifecycle(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, "10.00", 5)
	o := placeOrder(t, svc, customerID, p, 1)

	_, err := svc.SetStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, adminID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	for _, next := range []OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered} {
		updated, err := svc.SetStatus(ctx, o.ID, &UpdateStatusRequest{Status: next}, adminID)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ProcessedAt)
	assert.NotNil(t, got.ShippedAt)
	assert.NotNil(t, got.DeliveredAt)
	assert.Nil(t, got.CancelledAt)
	require.Len(t, got.StatusHistory, 4)
	assert.Equal(t, OrderStatusShipped, got.StatusHistory[3].FromStatus)

	// repeating the current status changes nothing
	again, err := svc.SetStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusDelivered}, adminID)
	require.NoError(t, err)
	assert.Len(t, again.StatusHistory, 4)

	assert.False(t, got.CanBeCancelled())
	_, err = svc.SetStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, adminID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "can no longer be cancelled")
	assert.Equal(t, 5, stockOf(t, db, p.ID))

	_, err = svc.SetStatus(ctx, o.ID, &UpdateStatusRequest{Status: "lost"}, adminID)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.SetStatus(ctx, 999, &UpdateStatusRequest{Status: OrderStatusProcessing}, adminID)
	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
}

func TestCancelReleasesStock(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, "10.00", 5)

	require.NoError(t, svc.ledger.Reserve(ctx, p.ID, 3, inventory.Reference{Type: "order"}))
	o := placeOrder(t, svc, customerID, p, 3)
	require.Equal(t, 2, stockOf(t, db, p.ID))

	cancelled, err := svc.SetStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled, Comment: "customer request"}, adminID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "customer request", cancelled.StatusHistory[len(cancelled.StatusHistory)-1].Comment)
	assert.Equal(t, 5, stockOf(t, db, p.ID))

	movements, err := svc.ledger.Movements(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, inventory.MovementTypeRelease, movements[0].MovementType)
	assert.Equal(t, o.ID, movements[0].ReferenceID)
}

func TestConcurrentCancelReleasesOnce(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, "10.00", 4)
	o := placeOrder(t, svc, customerID, p, 4)
	require.NoError(t, db.Model(p).Update("stock", 0).Error)

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := svc.SetStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, adminID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 5, stockOf(t, db, p.ID))

	var history int64
	require.NoError(t, db.Model(&OrderStatusHistory{}).Where("order_id = ? AND status = ?", o.ID, OrderStatusCancelled).Count(&history).Error)
	assert.EqualValues(t, 1, history)
}
