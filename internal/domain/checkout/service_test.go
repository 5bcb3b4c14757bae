package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/testutil"
)

const userID uint = 42

var address = order.Address{Street: "221B Baker St", City: "London", ZipCode: "NW1 6XE", Country: "UK"}

type fixture struct {
	db       *gorm.DB
	carts    *cart.Service
	orders   *order.Service
	checkout *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t,
		&user.User{}, &product.Product{}, &cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
		&inventory.InventoryMovement{},
	)
	cfg := &config.Config{Checkout: config.CheckoutConfig{
		TaxDisplayRate:  decimal.RequireFromString("0.08"),
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}}

	ledger := inventory.NewLedger(db, nil)
	carts := cart.NewService(db, cfg, nil)
	orders := order.NewService(db, cfg, ledger, nil)

	return &fixture{
		db:       db,
		carts:    carts,
		orders:   orders,
		checkout: NewService(db, carts, orders, ledger, nil),
	}
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: product.CategoryLivingRoom,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) add(t *testing.T, uid, productID uint, quantity int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), uid, &cart.AddItemRequest{ProductID: productID, Quantity: quantity})
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	var p product.Product
	require.NoError(t, f.db.Unscoped().First(&p, id).Error)
	return p.Stock
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&n).Error)
	return n
}

func (f *fixture) cartLines(t *testing.T, uid uint) []cart.CartItem {
	t.Helper()
	c, err := f.carts.Load(context.Background(), uid)
	require.NoError(t, err)
	return c.Items
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Modern Table Lamp", "10.00", 5)
	f.add(t, userID, p.ID, 3)

	placed, err := f.checkout.PlaceOrder(ctx, userID, address)
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusPending, placed.Status)
	assert.True(t, placed.TotalAmount.Equal(decimal.RequireFromString("30.00")))
	require.Len(t, placed.Items, 1)
	assert.Equal(t, 3, placed.Items[0].Quantity)
	assert.Equal(t, "Modern Table Lamp", placed.Items[0].ProductName)
	assert.Equal(t, "London", placed.ShippingAddress.City)
	require.Len(t, placed.StatusHistory, 1)

	assert.Equal(t, 2, f.stock(t, p.ID))
	assert.Empty(t, f.cartLines(t, userID))

	view, err := f.carts.Get(ctx, userID)
	require.NoError(t, err)
	assert.True(t, view.TotalAmount.IsZero())

	var movement inventory.InventoryMovement
	require.NoError(t, f.db.Where("product_id = ?", p.ID).First(&movement).Error)
	assert.Equal(t, inventory.MovementTypeReservation, movement.MovementType)
	assert.Equal(t, placed.ID, movement.ReferenceID)
	assert.Equal(t, 2, movement.StockAfter)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Modern Table Lamp", "59.99", 2)
	f.add(t, userID, p.ID, 2)
	f.add(t, userID, p.ID, 1)

	_, err := f.checkout.PlaceOrder(context.Background(), userID, address)
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Modern Table Lamp")

	assert.Equal(t, 2, f.stock(t, p.ID))
	assert.Zero(t, f.orderCount(t))
	lines := f.cartLines(t, userID)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.checkout.PlaceOrder(ctx, userID, address)
	assert.ErrorIs(t, err, apperror.ErrEmptyCart)

	_, err = f.carts.Get(ctx, userID)
	require.NoError(t, err)

	_, err = f.checkout.PlaceOrder(ctx, userID, address)
	assert.ErrorIs(t, err, apperror.ErrEmptyCart)
	assert.Zero(t, f.orderCount(t))
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Storage Ottoman", "149.99", 12)
	f.add(t, userID, p.ID, 1)

	_, err := f.checkout.PlaceOrder(ctx, userID, order.Address{Street: "1 Main St"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	require.NoError(t, f.db.Delete(&product.Product{}, p.ID).Error)
	_, err = f.checkout.PlaceOrder(ctx, userID, address)
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)

	assert.Zero(t, f.orderCount(t))
	assert.Len(t, f.cartLines(t, userID), 1)
}

func TestPlaceOrderIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lamp := f.product(t, "Modern Table Lamp", "59.99", 5)
	towels := f.product(t, "Luxury Bath Towel Set", "79.99", 5)
	f.add(t, userID, lamp.ID, 2)
	f.add(t, userID, towels.ID, 2)

	// another buyer takes the towels between the check pass and the reservation
	err := f.db.Callback().Create().After("gorm:create").Register("test:steal_stock", func(db *gorm.DB) {
		if db.Statement.Table != "orders" {
			return
		}
		err := db.Session(&gorm.Session{NewDB: true}).Model(&product.Product{}).
			Where("id = ?", towels.ID).
			UpdateColumn("stock", 1).Error
		if err != nil {
			_ = db.AddError(err)
		}
	})
	require.NoError(t, err)

	_, err = f.checkout.PlaceOrder(ctx, userID, address)
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)

	require.NoError(t, f.db.Callback().Create().Remove("test:steal_stock"))

	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 5, f.stock(t, lamp.ID))
	assert.Equal(t, 5, f.stock(t, towels.ID))
	assert.Len(t, f.cartLines(t, userID), 2)

	var movements int64
	require.NoError(t, f.db.Model(&inventory.InventoryMovement{}).Count(&movements).Error)
	assert.Zero(t, movements)
}

func TestPlacedOrderKeepsSnapshotPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Ceramic Dinnerware Set", "10.00", 5)
	f.add(t, userID, p.ID, 3)

	placed, err := f.checkout.PlaceOrder(ctx, userID, address)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(p).Updates(map[string]interface{}{
		"price": decimal.RequireFromString("20.00"),
		"name":  "Ceramic Dinnerware Set (2026)",
	}).Error)

	stored, err := f.orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("30")))
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, "Ceramic Dinnerware Set", stored.Items[0].ProductName)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Storage Ottoman", "149.99", 1)

	const buyers = 6
	for i := uint(1); i <= buyers; i++ {
		f.add(t, i, p.ID, 1)
	}

	results := make([]error, buyers)
	var g errgroup.Group
	for i := 0; i < buyers; i++ {
		g.Go(func() error {
			_, results[i] = f.checkout.PlaceOrder(ctx, uint(i+1), address)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.EqualValues(t, 1, f.orderCount(t))
}

func TestCancelledContextWritesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Modern Table Lamp", "10.00", 5)
	f.add(t, userID, p.ID, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.checkout.PlaceOrder(ctx, userID, address)
	require.Error(t, err)

	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.Zero(t, f.orderCount(t))
	assert.Len(t, f.cartLines(t, userID), 1)
}

// onFirstQuery runs fn once, right after the first query against table
func (f *fixture) onFirstQuery(t *testing.T, table string, fn func()) {
	t.Helper()
	name := "test:after_" + table
	fired := false
	err := f.db.Callback().Query().After("gorm:query").Register(name, func(db *gorm.DB) {
		if fired || db.Statement.Table != table {
			return
		}
		fired = true
		fn()
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.db.Callback().Query().Remove(name) })
}

func TestDuplicateCheckoutOfSameCartPlacesOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Modern Table Lamp", "10.00", 10)
	f.add(t, userID, p.ID, 1)

	// a second submit of the same cart lands after this one read its lines
	var first *order.Order
	var firstErr error
	f.onFirstQuery(t, "cart_items", func() {
		first, firstErr = f.checkout.PlaceOrder(ctx, userID, address)
	})

	_, err := f.checkout.PlaceOrder(ctx, userID, address)
	require.ErrorIs(t, err, apperror.ErrConflict)

	require.NoError(t, firstErr)
	require.NotNil(t, first)
	assert.EqualValues(t, 1, f.orderCount(t))
	assert.Equal(t, 9, f.stock(t, p.ID))
	assert.Empty(t, f.cartLines(t, userID))
}

func TestCheckoutKeepsLinesAddedMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lamp := f.product(t, "Modern Table Lamp", "10.00", 10)
	towels := f.product(t, "Luxury Bath Towel Set", "79.99", 10)
	f.add(t, userID, lamp.ID, 1)

	f.onFirstQuery(t, "cart_items", func() {
		f.add(t, userID, towels.ID, 2)
	})

	placed, err := f.checkout.PlaceOrder(ctx, userID, address)
	require.NoError(t, err)
	require.Len(t, placed.Items, 1)
	assert.Equal(t, lamp.ID, placed.Items[0].ProductID)

	lines := f.cartLines(t, userID)
	require.Len(t, lines, 1)
	assert.Equal(t, towels.ID, lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 10, f.stock(t, towels.ID))
	assert.Equal(t, 9, f.stock(t, lamp.ID))
}

func TestCheckoutRejectsQuantityChangedMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Modern Table Lamp", "10.00", 10)
	f.add(t, userID, p.ID, 1)
	lineID := f.cartLines(t, userID)[0].ID

	f.onFirstQuery(t, "cart_items", func() {
		_, err := f.carts.SetItemQuantity(ctx, userID, lineID, 4)
		require.NoError(t, err)
	})

	_, err := f.checkout.PlaceOrder(ctx, userID, address)
	require.ErrorIs(t, err, apperror.ErrConflict)

	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 10, f.stock(t, p.ID))
	lines := f.cartLines(t, userID)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestCommittedOrderSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Modern Table Lamp", "10.00", 5)
	f.add(t, userID, p.ID, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the client goes away once the order is committed
	f.onFirstQuery(t, "orders", cancel)

	placed, err := f.checkout.PlaceOrder(ctx, userID, address)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.NotZero(t, placed.ID)
	assert.NotEmpty(t, placed.OrderNumber)
	assert.EqualValues(t, 1, f.orderCount(t))
	assert.Equal(t, 4, f.stock(t, p.ID))
	assert.Empty(t, f.cartLines(t, userID))
}
