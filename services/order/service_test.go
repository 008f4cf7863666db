package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tsmarket/pkg/db/pagination"
	"tsmarket/services/account"
	"tsmarket/services/catalog"
	"tsmarket/services/ledger"
	"tsmarket/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	ledger   *ledger.Service
	catalog  *catalog.Service
	accounts *account.Service
	category *catalog.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t,
		&account.User{}, &ledger.Entry{}, &ledger.DiscountGrant{},
		&catalog.Category{}, &catalog.Product{},
		&Order{}, &OrderItem{},
	)
	node := testutil.NewNode(t)

	f := &fixture{db: db}
	f.accounts = account.NewService(account.ServiceParams{DB: db, Node: node})
	f.ledger = ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	f.catalog = catalog.NewService(catalog.ServiceParams{DB: db, Node: node})
	f.svc = NewService(ServiceParams{
		DB:       db,
		Node:     node,
		Seq:      &testutil.Sequence{},
		Ledger:   f.ledger,
		Catalog:  f.catalog,
		Accounts: f.accounts,
	})

	category, err := f.catalog.CreateCategory(context.Background(), catalog.CategoryRequest{Name: "Gaming"})
	require.NoError(t, err)
	f.category = category
	return f
}

func (f *fixture) user(t *testing.T, balance string) *account.User {
	t.Helper()
	ctx := context.Background()

	user, err := f.accounts.Register(ctx, account.RegisterRequest{Email: t.Name() + "@example.com", Name: "Buyer"})
	require.NoError(t, err)
	if balance != "0" {
		user, err = f.ledger.Credit(ctx, user.ID, decimal.RequireFromString(balance), ledger.Memo{Reference: "test"})
		require.NoError(t, err)
	}
	return user
}

func (f *fixture) product(t *testing.T, name, price string, xp int64, stock int, sizes ...string) *catalog.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), catalog.ProductRequest{
		CategoryID: f.category.ID,
		Name:       name,
		Price:      decimal.RequireFromString(price),
		XPReward:   xp,
		Stock:      stock,
		Sizes:      sizes,
	})
	require.NoError(t, err)
	return p
}

const address = "12 Dragon Street, Level City"

func TestCheckoutLevelsUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "500")
	mouse := f.product(t, "Dragon Mouse", "50", 50, 10)
	hoodie := f.product(t, "Guild Hoodie", "35.50", 50, 10, "S", "M")

	res, err := f.svc.Checkout(ctx, user.ID, CheckoutRequest{
		Items: []CartItem{
			{ProductID: mouse.ID, Quantity: 2},
			{ProductID: hoodie.ID, Quantity: 1, Size: "M"},
		},
		DeliveryAddress: "  " + address + "  ",
	})
	require.NoError(t, err)
	require.True(t, res.Order.Total.Equal(decimal.RequireFromString("135.50")))
	require.Equal(t, int64(150), res.Order.TotalXP)
	require.Equal(t, address, res.Order.DeliveryAddress)
	require.Equal(t, StatusCompleted, res.Order.Status)
	require.Len(t, res.Order.Items, 2)
	require.Equal(t, int64(150), res.XPGained)
	require.True(t, res.LevelUp)
	require.Equal(t, 2, res.NewLevel)
	require.Equal(t, 1, res.SpinsGranted)
	require.True(t, res.Balance.Equal(decimal.RequireFromString("364.50")))

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(150), after.XP)
	require.Equal(t, 2, after.Level)
	require.Equal(t, user.WheelSpinsAvailable+1, after.WheelSpinsAvailable)

	stocked, err := f.catalog.GetProduct(ctx, mouse.ID, true)
	require.NoError(t, err)
	require.Equal(t, 8, stocked.Stock)
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "100")
	mouse := f.product(t, "Dragon Mouse", "50", 10, 1)
	hoodie := f.product(t, "Guild Hoodie", "30", 10, 5, "S")

	cases := []struct {
		name string
		req  CheckoutRequest
		want error
	}{
		{"empty cart", CheckoutRequest{DeliveryAddress: address}, ErrEmptyCart},
		{"missing address", CheckoutRequest{Items: []CartItem{{ProductID: mouse.ID, Quantity: 1}}, DeliveryAddress: " abc "}, ErrMissingAddress},
		{"zero quantity", CheckoutRequest{Items: []CartItem{{ProductID: mouse.ID}}, DeliveryAddress: address}, ErrInvalidQuantity},
		{"unknown product", CheckoutRequest{Items: []CartItem{{ProductID: "nope", Quantity: 1}}, DeliveryAddress: address}, catalog.ErrProductNotFound},
		{"bad size", CheckoutRequest{Items: []CartItem{{ProductID: hoodie.ID, Quantity: 1, Size: "XL"}}, DeliveryAddress: address}, catalog.ErrInvalidSize},
		{"out of stock", CheckoutRequest{Items: []CartItem{{ProductID: mouse.ID, Quantity: 2}}, DeliveryAddress: address}, catalog.ErrOutOfStock},
		{"insufficient funds", CheckoutRequest{Items: []CartItem{{ProductID: hoodie.ID, Quantity: 5, Size: "S"}}, DeliveryAddress: address}, ledger.ErrInsufficientFunds},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Checkout(ctx, user.ID, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, after.Balance.Equal(decimal.NewFromInt(100)))
	require.Zero(t, after.XP)

	p, err := f.catalog.GetProduct(ctx, hoodie.ID, true)
	require.NoError(t, err)
	require.Equal(t, 5, p.Stock, "failed checkout must release reserved stock")

	orders, _, err := f.svc.ListForUser(ctx, user.ID, pagination.Pagination{})
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestConcurrentCheckoutsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "100")
	card := f.product(t, "Gift Card", "30", 10, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, insufficient int
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Checkout(ctx, user.ID, CheckoutRequest{
				Items:           []CartItem{{ProductID: card.ID, Quantity: 1}},
				DeliveryAddress: address,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ledger.ErrInsufficientFunds):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, ok)
	require.Equal(t, 3, insufficient)

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, after.Balance.Equal(decimal.NewFromInt(10)))
	require.Equal(t, int64(30), after.XP)

	p, err := f.catalog.GetProduct(ctx, card.ID, true)
	require.NoError(t, err)
	require.Equal(t, 97, p.Stock)

	verify, err := f.ledger.VerifyChain(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, verify.Valid)
}

func TestUpdateStatusProgression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "100")
	mouse := f.product(t, "Dragon Mouse", "50", 10, 5)

	res, err := f.svc.Checkout(ctx, user.ID, CheckoutRequest{Items: []CartItem{{ProductID: mouse.ID, Quantity: 1}}, DeliveryAddress: address})
	require.NoError(t, err)
	id := res.Order.ID

	_, err = f.svc.UpdateStatus(ctx, id, StatusDelivered)
	require.ErrorIs(t, err, ErrStatusTransition)

	_, err = f.svc.UpdateStatus(ctx, id, "lost")
	require.ErrorIs(t, err, ErrInvalidStatus)

	order, err := f.svc.UpdateStatus(ctx, id, StatusShipped)
	require.NoError(t, err)
	require.Equal(t, StatusShipped, order.Status)

	order, err = f.svc.UpdateStatus(ctx, id, StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, order.Status)
	require.Len(t, order.Items, 1)

	_, err = f.svc.UpdateStatus(ctx, id, StatusShipped)
	require.ErrorIs(t, err, ErrStatusTransition)

	_, err = f.svc.UpdateStatus(ctx, "missing", StatusShipped)
	require.ErrorIs(t, err, ErrOrderNotFound)

	shipped, _, err := f.svc.ListAll(ctx, ListFilter{Status: StatusDelivered}, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, shipped, 1)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.True(t, empty.Revenue.IsZero())

	user := f.user(t, "200")
	mouse := f.product(t, "Dragon Mouse", "50", 10, 5)
	f.product(t, "Guild Hoodie", "20", 10, 5)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Checkout(ctx, user.ID, CheckoutRequest{Items: []CartItem{{ProductID: mouse.ID, Quantity: 1}}, DeliveryAddress: address})
		require.NoError(t, err)
	}

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Users)
	require.Equal(t, int64(2), stats.Products)
	require.Equal(t, int64(2), stats.Orders)
	require.True(t, stats.Revenue.Equal(decimal.NewFromInt(100)))
}

func TestCheckoutOverHTTP(t *testing.T) {
	f := newFixture(t)
	router := testutil.NewRouter(t, f.accounts)
	RegisterRoutes(router, NewHandler(f.svc))
	user := f.user(t, "100")
	mouse := f.product(t, "Dragon Mouse", "50", 150, 5)

	body := CheckoutRequest{Items: []CartItem{{ProductID: mouse.ID, Quantity: 1}}, DeliveryAddress: address}
	w := testutil.Do(t, router.Engine, http.MethodPost, "/api/orders", "", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.Do(t, router.Engine, http.MethodPost, "/api/orders", user.ID, body)
	require.Equal(t, http.StatusCreated, w.Code)

	var res struct {
		XPGained int64 `json:"xp_gained"`
		LevelUp  bool  `json:"level_up"`
		NewLevel int   `json:"new_level"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, int64(150), res.XPGained)
	require.True(t, res.LevelUp)
	require.Equal(t, 2, res.NewLevel)

	w = testutil.Do(t, router.Engine, http.MethodPost, "/api/orders", user.ID, CheckoutRequest{DeliveryAddress: address})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var failure struct {
		Error struct {
			Reason string `json:"reason"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failure))
	require.Equal(t, "empty_cart", failure.Error.Reason)

	w = testutil.Do(t, router.Engine, http.MethodGet, "/api/admin/stats", user.ID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}
