package repository

import (
	"context"

	"tsmarket/pkg/db/option"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the generic data access used by every service. Query
// structs follow gorm semantics: zero-valued fields are not filtered on.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	BatchCreate(ctx context.Context, resources []*T) error
	BatchUpdate(ctx context.Context, resources []*T) error
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) query(ctx context.Context, query *T, opts []option.QueryOption) *gorm.DB {
	q := s.db.WithContext(ctx).Model(new(T))
	if query != nil {
		q = q.Where(query)
	}
	for _, opt := range opts {
		q = q.Scopes(opt)
	}
	return q
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var resources []*T
	if err := s.query(ctx, query, opts).Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var resources []*T
	if err := s.query(ctx, query, opts).Limit(1).Find(&resources).Error; err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, nil
	}
	return resources[0], nil
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s *store[T]) Update(ctx context.Context, resourceID string, resource any) error {
	return s.db.WithContext(ctx).
		Model(new(T)).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: resourceID}).
		Updates(resource).Error
}

func (s *store[T]) Delete(ctx context.Context, resourceID string) error {
	return s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: resourceID}).
		Delete(new(T)).Error
}

func (s *store[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if len(resources) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(resources, 100).Error
}

func (s *store[T]) BatchUpdate(ctx context.Context, resources []*T) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range resources {
			if err := tx.Save(r).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	var count int64
	if err := s.query(ctx, query, opts).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
