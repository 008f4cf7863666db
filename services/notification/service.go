package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tsmarket/pkg/db/option"
	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/services/ledger"
	"tsmarket/services/topup"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	notifications repository.Repository[Notification]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		notifications: repository.ProvideStore[Notification](p.DB),
	}
}

// record inserts n unless a row with the same dedupe key exists.
func (s *Service) record(ctx context.Context, n *Notification, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	n.ID = s.node.Generate().String()
	n.Payload = datatypes.JSON(raw)
	n.CreatedAt = time.Now().UTC()

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(n).Error
	if err != nil {
		logger.FromContext(ctx).Error("failed to store notification", zap.String("user_id", n.UserID), zap.Error(err))
		return errutil.Internal("failed to store notification", err)
	}
	return nil
}

func (s *Service) LevelUp(ctx context.Context, e ledger.LevelUpEvent) error {
	body := fmt.Sprintf("You reached level %d.", e.NewLevel)
	if e.SpinsGranted > 0 {
		body = fmt.Sprintf("You reached level %d and earned %d wheel spin(s).", e.NewLevel, e.SpinsGranted)
	}
	return s.record(ctx, &Notification{
		UserID:    e.UserID,
		Kind:      KindLevelUp,
		Title:     "Level up!",
		Body:      body,
		DedupeKey: fmt.Sprintf("%s:%s:%d:%s", KindLevelUp, e.UserID, e.NewLevel, e.Reference),
	}, e)
}

func (s *Service) TopupProcessed(ctx context.Context, e topup.Event) error {
	n := &Notification{
		UserID:    e.UserID,
		Kind:      KindTopupProcessed,
		DedupeKey: fmt.Sprintf("%s:%s", KindTopupProcessed, e.RequestID),
	}
	switch e.Status {
	case topup.StatusApproved:
		n.Title = "Top-up approved"
		n.Body = fmt.Sprintf("%s coins from request %s were added to your balance.", e.Amount.StringFixed(2), e.Code)
	case topup.StatusRejected:
		n.Title = "Top-up rejected"
		n.Body = fmt.Sprintf("Request %s was rejected.", e.Code)
		if e.AdminNote != "" {
			n.Body += " " + e.AdminNote
		}
	default:
		return fmt.Errorf("top-up request %s is still %s", e.RequestID, e.Status)
	}
	return s.record(ctx, n, e)
}

func (s *Service) List(ctx context.Context, userID string, f ListFilter, page pagination.Pagination) ([]*Notification, *pagination.PageInfo, error) {
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	}
	if f.Unread {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "read_at", Operator: option.EQ, Value: nil}))
	}

	rows, err := s.notifications.Find(ctx, &Notification{UserID: userID}, opts...)
	if err != nil {
		return nil, nil, errutil.Internal("failed to list notifications", err)
	}

	rows, info := pagination.Page(rows, page.Limit, func(n *Notification) string { return n.ID })
	return rows, info, nil
}

func (s *Service) Unread(ctx context.Context, userID string) (*UnreadCount, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Notification{}).
		Where(&Notification{UserID: userID}).
		Where("read_at IS NULL").
		Count(&count).Error
	if err != nil {
		return nil, errutil.Internal("failed to count notifications", err)
	}
	return &UnreadCount{Unread: count}, nil
}

// MarkRead only touches notifications owned by userID.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Model(&Notification{}).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).
		Where(&Notification{UserID: userID}).
		Where("read_at IS NULL").
		Update("read_at", time.Now().UTC())
	if res.Error != nil {
		return errutil.Internal("failed to mark notification read", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	n, err := s.notifications.FindOne(ctx, &Notification{ID: id, UserID: userID})
	if err != nil {
		return errutil.Internal("failed to load notification", err)
	}
	if n == nil {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Model(&Notification{}).
		Where(&Notification{UserID: userID}).
		Where("read_at IS NULL").
		Update("read_at", time.Now().UTC()).Error
	if err != nil {
		return errutil.Internal("failed to mark notifications read", err)
	}
	return nil
}
