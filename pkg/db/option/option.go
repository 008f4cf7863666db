package option

import (
	"strings"

	"tsmarket/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption is a gorm scope applied by repository queries.
type QueryOption func(*gorm.DB) *gorm.DB

// LockingUpdate adds SELECT ... FOR UPDATE. Dialects without row locks
// (sqlite) drop the clause.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// WithSortBy orders by SortBy when it is allowed, by id otherwise.
func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := "id"
		if s.SortBy != "" && s.Allow[s.SortBy] {
			column = s.SortBy
		}
		desc := strings.EqualFold(s.OrderBy, "desc")
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
	}
}

type Operator string

const (
	EQ   Operator = "="
	NEQ  Operator = "<>"
	GT   Operator = ">"
	GTE  Operator = ">="
	LT   Operator = "<"
	LTE  Operator = "<="
	LIKE Operator = "LIKE"
	IN   Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func (c Condition) expression() clause.Expression {
	col := clause.Column{Name: c.Field}
	switch c.Operator {
	case NEQ:
		return clause.Neq{Column: col, Value: c.Value}
	case GT:
		return clause.Gt{Column: col, Value: c.Value}
	case GTE:
		return clause.Gte{Column: col, Value: c.Value}
	case LT:
		return clause.Lt{Column: col, Value: c.Value}
	case LTE:
		return clause.Lte{Column: col, Value: c.Value}
	case LIKE:
		return clause.Like{Column: col, Value: c.Value}
	case IN:
		values, _ := c.Value.([]any)
		return clause.IN{Column: col, Values: values}
	default:
		return clause.Eq{Column: col, Value: c.Value}
	}
}

func ApplyOperator(conds ...Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range conds {
			db = db.Where(c.expression())
		}
		return db
	}
}

// ApplyPagination limits the result set and continues after the cursor id
// for lists ordered by id descending.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if p.Cursor != "" {
			if cursor, err := pagination.DecodeCursor(p.Cursor); err == nil && cursor.ID != "" {
				db = db.Where(clause.Lt{Column: clause.Column{Name: "id"}, Value: cursor.ID})
			}
		}
		limit := p.Limit
		if limit <= 0 {
			limit = pagination.DefaultLimit
		}
		if limit > pagination.MaxLimit {
			limit = pagination.MaxLimit
		}
		return db.Limit(limit + 1)
	}
}

func WithPreload(association string, args ...any) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(association, args...)
	}
}
