package order

import (
	"context"
	"strings"
	"time"

	"tsmarket/pkg/db/option"
	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/pkg/sequence"
	"tsmarket/services/account"
	"tsmarket/services/catalog"
	"tsmarket/services/ledger"
	"tsmarket/services/leveling"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	seq  sequence.Generator

	ledger   *ledger.Service
	catalog  *catalog.Service
	accounts *account.Service

	orders repository.Repository[Order]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Seq      sequence.Generator
	Ledger   *ledger.Service
	Catalog  *catalog.Service
	Accounts *account.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		seq:      p.Seq,
		ledger:   p.Ledger,
		catalog:  p.Catalog,
		accounts: p.Accounts,
		orders:   repository.ProvideStore[Order](p.DB),
	}
}

func validateCart(req CheckoutRequest) (string, error) {
	if len(req.Items) == 0 {
		return "", ErrEmptyCart
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if len(address) < minAddressLength {
		return "", ErrMissingAddress
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return "", ErrInvalidQuantity
		}
	}
	return address, nil
}

// Checkout prices the cart from current product data, takes stock, debits
// the total, applies the XP and stores the order, all in one transaction.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	zapLog := logger.FromContext(ctx).With(zap.String("user_id", userID))

	address, err := validateCart(req)
	if err != nil {
		return nil, err
	}

	code, err := s.seq.NextOrderCode(ctx)
	if err != nil {
		zapLog.Error("failed to generate order code", zap.Error(err))
		return nil, errutil.Internal("failed to generate order code", err)
	}

	var result CheckoutResult
	err = s.ledger.Transaction(ctx, func(tx *gorm.DB, l *ledger.Service) error {
		user, err := l.Lock(ctx, userID)
		if err != nil {
			return err
		}
		result.Balance = user.Balance

		now := time.Now().UTC()
		order := &Order{
			ID:              s.node.Generate().String(),
			Code:            code,
			UserID:          userID,
			Total:           decimal.Zero,
			DeliveryAddress: address,
			Status:          StatusCompleted,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		for i, item := range req.Items {
			product, err := s.catalog.Reserve(ctx, tx, item.ProductID, item.Size, item.Quantity)
			if err != nil {
				return err
			}

			qty := int64(item.Quantity)
			order.Total = order.Total.Add(product.Price.Mul(decimal.NewFromInt(qty)))
			order.TotalXP = leveling.AddXP(order.TotalXP, leveling.ScaleXP(product.XPReward, qty))
			order.Items = append(order.Items, OrderItem{
				ID:        s.node.Generate().String(),
				OrderID:   order.ID,
				Position:  i,
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				Size:      item.Size,
				UnitPrice: product.Price,
				XPReward:  product.XPReward,
			})
		}

		memo := ledger.Memo{Reference: "order:" + order.Code, Description: "checkout " + order.Code}
		if order.Total.IsPositive() {
			user, err := l.Debit(ctx, userID, order.Total, memo)
			if err != nil {
				return err
			}
			result.Balance = user.Balance
		}

		xp, err := l.ApplyXP(ctx, userID, order.TotalXP, memo)
		if err != nil {
			return err
		}

		if err := s.orders.WithTrx(tx).Create(ctx, order); err != nil {
			return errutil.Internal("failed to store order", err)
		}

		result.Order = order
		result.XPGained = xp.XPGained
		result.LevelUp = xp.LevelUp
		result.NewLevel = xp.NewLevel
		result.SpinsGranted = xp.SpinsGranted
		return nil
	})
	if err != nil {
		zapLog.Warn("checkout failed", zap.Error(err))
		return nil, err
	}

	zapLog.Info("order completed",
		zap.String("order_code", result.Order.Code),
		zap.String("total", result.Order.Total.StringFixed(2)),
		zap.Int64("xp_gained", result.XPGained),
	)
	return &result, nil
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (s *Service) list(ctx context.Context, query *Order, page pagination.Pagination) ([]*Order, *pagination.PageInfo, error) {
	orders, err := s.orders.Find(ctx, query,
		option.WithPreload("Items", itemsInOrder),
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query orders", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list orders", err)
	}

	orders, info := pagination.Page(orders, page.Limit, func(o *Order) string { return o.ID })
	return orders, info, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, page pagination.Pagination) ([]*Order, *pagination.PageInfo, error) {
	return s.list(ctx, &Order{UserID: userID}, page)
}

func (s *Service) ListAll(ctx context.Context, f ListFilter, page pagination.Pagination) ([]*Order, *pagination.PageInfo, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, nil, ErrInvalidStatus
	}
	return s.list(ctx, &Order{Status: f.Status}, page)
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	order, err := s.orders.FindOne(ctx, &Order{ID: orderID}, option.WithPreload("Items", itemsInOrder))
	if err != nil {
		return nil, errutil.Internal("failed to load order", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus moves an order one step along completed, shipped, delivered.
// The update is conditional on the status read, so two admins racing on
// the same order cannot both apply.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(next) {
		return nil, errutil.WithMessage(ErrStatusTransition, "order is "+string(order.Status)+", cannot become "+string(next))
	}

	res := s.db.WithContext(ctx).
		Model(&Order{}).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: orderID}).
		Where(clause.Eq{Column: clause.Column{Name: "status"}, Value: order.Status}).
		Updates(map[string]any{"status": next, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, errutil.Internal("failed to update order", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStatusTransition
	}

	logger.FromContext(ctx).Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)),
	)
	return s.Get(ctx, orderID)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	var err error

	if stats.Users, err = s.accounts.Count(ctx); err != nil {
		return nil, errutil.Internal("failed to count users", err)
	}
	if stats.Products, err = s.catalog.CountProducts(ctx); err != nil {
		return nil, errutil.Internal("failed to count products", err)
	}
	if stats.Orders, err = s.orders.Count(ctx, &Order{}); err != nil {
		return nil, errutil.Internal("failed to count orders", err)
	}

	var revenue decimal.NullDecimal
	if err := s.db.WithContext(ctx).Model(&Order{}).Select("SUM(total)").Row().Scan(&revenue); err != nil {
		return nil, errutil.Internal("failed to sum revenue", err)
	}
	stats.Revenue = decimal.Zero
	if revenue.Valid {
		stats.Revenue = revenue.Decimal.Round(2)
	}

	return &stats, nil
}
