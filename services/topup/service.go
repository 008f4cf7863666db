package topup

import (
	"context"
	"errors"
	"strings"
	"time"

	"tsmarket/pkg/db/option"
	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/pkg/sequence"
	"tsmarket/services/ledger"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier is told about approved and rejected requests after commit.
type Notifier interface {
	TopupProcessed(ctx context.Context, event Event)
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	seq      sequence.Generator
	ledger   *ledger.Service
	throttle Throttle
	notifier Notifier

	requests repository.Repository[TopupRequest]
	codes    repository.Repository[TopupCode]
	history  repository.Repository[History]
	settings repository.Repository[PaymentSettings]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Seq      sequence.Generator
	Ledger   *ledger.Service
	Throttle Throttle `optional:"true"`
	Notifier Notifier `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		seq:      p.Seq,
		ledger:   p.Ledger,
		throttle: p.Throttle,
		notifier: p.Notifier,
		requests: repository.ProvideStore[TopupRequest](p.DB),
		codes:    repository.ProvideStore[TopupCode](p.DB),
		history:  repository.ProvideStore[History](p.DB),
		settings: repository.ProvideStore[PaymentSettings](p.DB),
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) allow(ctx context.Context, userID string) error {
	if s.throttle == nil {
		return nil
	}
	ok, err := s.throttle.Allow(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("redeem throttle unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *Service) recordAttempt(ctx context.Context, userID string, redeemErr error) {
	if s.throttle == nil {
		return
	}
	var err error
	switch {
	case redeemErr == nil:
		err = s.throttle.Reset(ctx, userID)
	case errors.Is(redeemErr, ErrInvalidCode):
		err = s.throttle.Fail(ctx, userID)
	default:
		return
	}
	if err != nil {
		logger.FromContext(ctx).Warn("failed to record redeem attempt", zap.Error(err))
	}
}

// RedeemCode credits the code's amount to the user and marks the code used.
// The is_used flag only flips from false to true, so a code pays out once
// no matter how many requests race for it.
func (s *Service) RedeemCode(ctx context.Context, userID, raw string) (*RedeemResult, error) {
	zapLog := logger.FromContext(ctx).With(zap.String("user_id", userID))

	code := normalizeCode(raw)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if err := s.allow(ctx, userID); err != nil {
		return nil, err
	}

	var result RedeemResult
	err := s.ledger.Transaction(ctx, func(tx *gorm.DB, l *ledger.Service) error {
		topupCode, err := s.codes.WithTrx(tx).FindOne(ctx, &TopupCode{Code: code})
		if err != nil {
			return errutil.Internal("failed to load top-up code", err)
		}
		if topupCode == nil {
			return ErrInvalidCode
		}
		if topupCode.IsUsed {
			return ErrAlreadyUsed
		}

		now := time.Now().UTC()
		res := tx.WithContext(ctx).
			Model(&TopupCode{}).
			Where(clause.Eq{Column: clause.PrimaryColumn, Value: topupCode.ID}).
			Where(clause.Eq{Column: clause.Column{Name: "is_used"}, Value: false}).
			Updates(map[string]any{"is_used": true, "used_by": userID, "used_at": now})
		if res.Error != nil {
			return errutil.Internal("failed to mark code used", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyUsed
		}

		user, err := l.Credit(ctx, userID, topupCode.Amount, ledger.Memo{
			Reference:   "topup:code:" + topupCode.Code,
			Description: "redeemed top-up code",
		})
		if err != nil {
			return err
		}

		if err := s.history.WithTrx(tx).Create(ctx, &History{
			ID:        s.node.Generate().String(),
			UserID:    userID,
			Source:    SourceCode,
			Reference: topupCode.Code,
			Amount:    topupCode.Amount,
			CreatedAt: now,
		}); err != nil {
			return errutil.Internal("failed to record top-up history", err)
		}

		result = RedeemResult{Code: topupCode.Code, Amount: topupCode.Amount, NewBalance: user.Balance}
		return nil
	})
	s.recordAttempt(ctx, userID, err)
	if err != nil {
		zapLog.Warn("code redemption failed", zap.Error(err))
		return nil, err
	}

	zapLog.Info("top-up code redeemed", zap.String("code", result.Code), zap.String("amount", result.Amount.StringFixed(2)))
	return &result, nil
}

// Submit files a manual top-up request awaiting admin review. Unknown users
// are rejected so no request is queued that could never be approved.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (*TopupRequest, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	receipt := strings.TrimSpace(req.ReceiptURL)
	if receipt == "" {
		return nil, ErrMissingReceipt
	}

	code, err := s.seq.NextTopupCode(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to generate top-up code", zap.Error(err))
		return nil, errutil.Internal("failed to generate request code", err)
	}

	request := &TopupRequest{
		ID:         s.node.Generate().String(),
		Code:       code,
		UserID:     userID,
		Amount:     req.Amount.Round(2),
		ReceiptURL: receipt,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	err = s.ledger.Transaction(ctx, func(tx *gorm.DB, l *ledger.Service) error {
		if _, err := l.Lock(ctx, userID); err != nil {
			return err
		}
		if err := s.requests.WithTrx(tx).Create(ctx, request); err != nil {
			return errutil.Internal("failed to create top-up request", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("top-up request submitted",
		zap.String("user_id", userID),
		zap.String("code", code),
		zap.String("amount", request.Amount.StringFixed(2)),
	)
	return request, nil
}

func (s *Service) Approve(ctx context.Context, adminID, requestID string) (*TopupRequest, error) {
	return s.process(ctx, adminID, requestID, StatusApproved, "")
}

func (s *Service) Reject(ctx context.Context, adminID, requestID, note string) (*TopupRequest, error) {
	return s.process(ctx, adminID, requestID, StatusRejected, strings.TrimSpace(note))
}

// process moves a pending request to target. The update is conditional on
// the request still being pending, and approval credits the user in the
// same transaction, so a request is paid at most once.
func (s *Service) process(ctx context.Context, adminID, requestID string, target RequestStatus, note string) (*TopupRequest, error) {
	zapLog := logger.FromContext(ctx).With(zap.String("request_id", requestID), zap.String("admin_id", adminID))

	var request *TopupRequest
	err := s.ledger.Transaction(ctx, func(tx *gorm.DB, l *ledger.Service) error {
		var err error
		request, err = s.requests.WithTrx(tx).FindOne(ctx, &TopupRequest{ID: requestID})
		if err != nil {
			return errutil.Internal("failed to load top-up request", err)
		}
		if request == nil {
			return ErrRequestNotFound
		}

		next, err := request.Status.Transition(target)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		res := tx.WithContext(ctx).
			Model(&TopupRequest{}).
			Where(clause.Eq{Column: clause.PrimaryColumn, Value: request.ID}).
			Where(clause.Eq{Column: clause.Column{Name: "status"}, Value: StatusPending}).
			Updates(map[string]any{
				"status":       next,
				"admin_note":   note,
				"processed_by": adminID,
				"processed_at": now,
			})
		if res.Error != nil {
			return errutil.Internal("failed to update top-up request", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}
		request.Status = next
		request.AdminNote = note
		request.ProcessedBy = adminID
		request.ProcessedAt = &now

		if next != StatusApproved {
			return nil
		}

		if _, err := l.Credit(ctx, request.UserID, request.Amount, ledger.Memo{
			Reference:   "topup:request:" + request.Code,
			Description: "approved top-up request",
		}); err != nil {
			return err
		}
		if err := s.history.WithTrx(tx).Create(ctx, &History{
			ID:        s.node.Generate().String(),
			UserID:    request.UserID,
			Source:    SourceRequest,
			Reference: request.Code,
			Amount:    request.Amount,
			CreatedAt: now,
		}); err != nil {
			return errutil.Internal("failed to record top-up history", err)
		}
		return nil
	})
	if err != nil {
		zapLog.Warn("top-up request not processed", zap.String("target", string(target)), zap.Error(err))
		return nil, err
	}

	zapLog.Info("top-up request processed", zap.String("status", string(request.Status)))
	if s.notifier != nil {
		s.notifier.TopupProcessed(ctx, Event{
			RequestID: request.ID,
			Code:      request.Code,
			UserID:    request.UserID,
			Amount:    request.Amount,
			Status:    request.Status,
			AdminNote: request.AdminNote,
		})
	}
	return request, nil
}

func (s *Service) listRequests(ctx context.Context, query *TopupRequest, page pagination.Pagination) ([]*TopupRequest, *pagination.PageInfo, error) {
	requests, err := s.requests.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		return nil, nil, errutil.Internal("failed to list top-up requests", err)
	}

	requests, info := pagination.Page(requests, page.Limit, func(r *TopupRequest) string { return r.ID })
	return requests, info, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, page pagination.Pagination) ([]*TopupRequest, *pagination.PageInfo, error) {
	return s.listRequests(ctx, &TopupRequest{UserID: userID}, page)
}

func (s *Service) ListAll(ctx context.Context, f ListFilter, page pagination.Pagination) ([]*TopupRequest, *pagination.PageInfo, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, nil, ErrInvalidStatus
	}
	return s.listRequests(ctx, &TopupRequest{Status: f.Status}, page)
}

func (s *Service) History(ctx context.Context, userID string, page pagination.Pagination) ([]*History, *pagination.PageInfo, error) {
	rows, err := s.history.Find(ctx, &History{UserID: userID},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		return nil, nil, errutil.Internal("failed to list top-up history", err)
	}

	rows, info := pagination.Page(rows, page.Limit, func(h *History) string { return h.ID })
	return rows, info, nil
}

// CreateCode stores a new one-shot code. A random code is generated when
// none is given.
func (s *Service) CreateCode(ctx context.Context, req CreateCodeRequest) (*TopupCode, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	id := s.node.Generate()
	code := normalizeCode(req.Code)
	if code == "" {
		code = strings.ToUpper(id.Base36())
	}

	topupCode := &TopupCode{
		ID:        id.String(),
		Code:      code,
		Amount:    req.Amount.Round(2),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.codes.Create(ctx, topupCode); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCodeTaken
		}
		return nil, errutil.Internal("failed to create top-up code", err)
	}

	logger.FromContext(ctx).Info("top-up code created", zap.String("code", code))
	return topupCode, nil
}

func (s *Service) ListCodes(ctx context.Context, page pagination.Pagination) ([]*TopupCode, *pagination.PageInfo, error) {
	codes, err := s.codes.Find(ctx, &TopupCode{},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		return nil, nil, errutil.Internal("failed to list top-up codes", err)
	}

	codes, info := pagination.Page(codes, page.Limit, func(c *TopupCode) string { return c.ID })
	return codes, info, nil
}

func (s *Service) DeleteCode(ctx context.Context, id string) error {
	code, err := s.codes.FindOne(ctx, &TopupCode{ID: id})
	if err != nil {
		return errutil.Internal("failed to load top-up code", err)
	}
	if code == nil {
		return ErrCodeNotFound
	}
	if err := s.codes.Delete(ctx, id); err != nil {
		return errutil.Internal("failed to delete top-up code", err)
	}
	return nil
}

// Settings returns the payment instructions, empty until an admin sets them.
func (s *Service) Settings(ctx context.Context) (*PaymentSettings, error) {
	settings, err := s.settings.FindOne(ctx, &PaymentSettings{ID: settingsID})
	if err != nil {
		return nil, errutil.Internal("failed to load payment settings", err)
	}
	if settings == nil {
		return &PaymentSettings{ID: settingsID}, nil
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req SettingsRequest) (*PaymentSettings, error) {
	settings := &PaymentSettings{
		ID:         settingsID,
		CardNumber: strings.TrimSpace(req.CardNumber),
		CardHolder: strings.TrimSpace(req.CardHolder),
		Info:       req.Info,
		UpdatedAt:  time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"card_number", "card_holder", "info", "updated_at"}),
	}).Create(settings).Error
	if err != nil {
		return nil, errutil.Internal("failed to save payment settings", err)
	}
	return settings, nil
}

// TotalCredited sums what a user has received through top-ups.
func (s *Service) TotalCredited(ctx context.Context, userID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := s.db.WithContext(ctx).Model(&History{}).
		Where(&History{UserID: userID}).
		Select("SUM(amount)").Row().Scan(&total)
	if err != nil {
		return decimal.Zero, errutil.Internal("failed to sum top-ups", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}
