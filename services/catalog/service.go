package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"tsmarket/pkg/db/option"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/services/leveling"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	categories repository.Repository[Category]
	products   repository.Repository[Product]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		categories: repository.ProvideStore[Category](p.DB),
		products:   repository.ProvideStore[Product](p.DB),
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	categories, err := s.categories.Find(ctx, &Category{}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "name",
		OrderBy: "asc",
		Allow:   map[string]bool{"name": true},
	}))
	if err != nil {
		return nil, errutil.Internal("failed to list categories", err)
	}
	return categories, nil
}

// CreateCategory derives the slug from the name when none is given.
func (s *Service) CreateCategory(ctx context.Context, req CategoryRequest) (*Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errutil.WithMessage(ErrInvalidProduct, "category name is required")
	}

	key := slug.Make(req.Slug)
	if key == "" {
		key = slug.Make(name)
	}

	category := &Category{
		ID:        s.node.Generate().String(),
		Name:      name,
		Slug:      key,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, errutil.Internal("failed to create category", err)
	}

	logger.FromContext(ctx).Info("category created", zap.String("category_id", category.ID), zap.String("slug", key))
	return category, nil
}

// resolveCategory accepts either a category id or its slug.
func (s *Service) resolveCategory(ctx context.Context, ref string) (*Category, error) {
	category, err := s.categories.FindOne(ctx, &Category{Slug: ref})
	if err != nil {
		return nil, errutil.Internal("failed to load category", err)
	}
	if category != nil {
		return category, nil
	}

	category, err = s.categories.FindOne(ctx, &Category{ID: ref})
	if err != nil {
		return nil, errutil.Internal("failed to load category", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// DeleteCategory refuses to remove a category that still holds products.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	category, err := s.resolveCategory(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.products.Count(ctx, &Product{CategoryID: category.ID})
	if err != nil {
		return errutil.Internal("failed to count products", err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	if err := s.categories.Delete(ctx, category.ID); err != nil {
		return errutil.Internal("failed to delete category", err)
	}
	return nil
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errutil.Wrap(ErrInvalidFilter, err)
	}
	return &d, nil
}

func searchScope(term string) option.QueryOption {
	pattern := "%" + strings.ToLower(term) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
}

// ListProducts applies the storefront filters. Size matching runs after the
// query since sizes are stored as a JSON array.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]*Product, error) {
	minPrice, err := parsePrice(f.MinPrice)
	if err != nil {
		return nil, err
	}
	maxPrice, err := parsePrice(f.MaxPrice)
	if err != nil {
		return nil, err
	}

	query := &Product{}
	if !f.IncludeInactive {
		query.IsActive = true
	}

	var conds []option.Condition
	if f.Category != "" {
		category, err := s.resolveCategory(ctx, f.Category)
		if err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return []*Product{}, nil
			}
			return nil, err
		}
		conds = append(conds, option.Condition{Field: "category_id", Operator: option.EQ, Value: category.ID})
	}
	if minPrice != nil {
		conds = append(conds, option.Condition{Field: "price", Operator: option.GTE, Value: *minPrice})
	}
	if maxPrice != nil {
		conds = append(conds, option.Condition{Field: "price", Operator: option.LTE, Value: *maxPrice})
	}
	if f.MinXP > 0 {
		conds = append(conds, option.Condition{Field: "xp_reward", Operator: option.GTE, Value: f.MinXP})
	}

	opts := []option.QueryOption{
		option.ApplyOperator(conds...),
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		opts = append(opts, searchScope(term))
	}

	products, err := s.products.Find(ctx, query, opts...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query products", zap.Error(err))
		return nil, errutil.Internal("failed to list products", err)
	}

	if f.Size == "" {
		return products, nil
	}
	filtered := make([]*Product, 0, len(products))
	for _, p := range products {
		if len(p.Sizes) > 0 && p.AcceptsSize(f.Size) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// GetProduct hides inactive products unless includeInactive is set.
func (s *Service) GetProduct(ctx context.Context, id string, includeInactive bool) (*Product, error) {
	product, err := s.products.FindOne(ctx, &Product{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to load product", err)
	}
	if product == nil || (!product.IsActive && !includeInactive) {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *Service) validate(ctx context.Context, req ProductRequest) (*Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errutil.WithMessage(ErrInvalidProduct, "product name is required")
	}
	if req.Price.IsNegative() {
		return nil, errutil.WithMessage(ErrInvalidProduct, "price must not be negative")
	}
	if req.XPReward < 0 || req.Stock < 0 {
		return nil, errutil.WithMessage(ErrInvalidProduct, "xp reward and stock must not be negative")
	}
	if req.XPReward > leveling.MaxXP {
		return nil, errutil.WithMessage(ErrInvalidProduct, "xp reward is too large")
	}
	return s.resolveCategory(ctx, req.CategoryID)
}

func (s *Service) CreateProduct(ctx context.Context, req ProductRequest) (*Product, error) {
	category, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &Product{
		ID:          s.node.Generate().String(),
		CategoryID:  category.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price.Round(2),
		XPReward:    req.XPReward,
		Sizes:       sizesOf(req.Sizes),
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		IsActive:    req.IsActive == nil || *req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, errutil.Internal("failed to create product", err)
	}

	logger.FromContext(ctx).Info("product created", zap.String("product_id", product.ID))
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req ProductRequest) (*Product, error) {
	if _, err := s.GetProduct(ctx, id, true); err != nil {
		return nil, err
	}
	category, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"category_id": category.ID,
		"name":        strings.TrimSpace(req.Name),
		"description": req.Description,
		"price":       req.Price.Round(2),
		"xp_reward":   req.XPReward,
		"sizes":       sizesOf(req.Sizes),
		"image_url":   req.ImageURL,
		"stock":       req.Stock,
		"updated_at":  time.Now().UTC(),
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := s.products.Update(ctx, id, updates); err != nil {
		return nil, errutil.Internal("failed to update product", err)
	}
	return s.GetProduct(ctx, id, true)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.GetProduct(ctx, id, true); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return errutil.Internal("failed to delete product", err)
	}
	logger.FromContext(ctx).Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *Service) CountProducts(ctx context.Context) (int64, error) {
	return s.products.Count(ctx, &Product{})
}

// Reserve loads an active product inside tx, checks the requested size and
// takes quantity units of stock. The stock update only applies while enough
// units remain, so concurrent checkouts cannot oversell.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, productID, size string, quantity int) (*Product, error) {
	product, err := s.products.WithTrx(tx).FindOne(ctx, &Product{ID: productID})
	if err != nil {
		return nil, errutil.Internal("failed to load product", err)
	}
	if product == nil || !product.IsActive {
		return nil, errutil.WithMessage(ErrProductNotFound, "product "+productID+" not found")
	}
	if !product.AcceptsSize(size) {
		return nil, errutil.WithMessage(ErrInvalidSize, "size "+size+" is not available for "+product.Name)
	}

	res := tx.WithContext(ctx).
		Model(&Product{}).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: productID}).
		Where(clause.Gte{Column: clause.Column{Name: "stock"}, Value: quantity}).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, errutil.Internal("failed to reserve stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errutil.WithMessage(ErrOutOfStock, product.Name+" is out of stock")
	}

	product.Stock -= quantity
	return product, nil
}
