package ledger

import (
	"context"
	"fmt"
	"time"

	"tsmarket/pkg/db/option"
	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/services/account"
	"tsmarket/services/leveling"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const genesisHash = "GENESIS"

// Notifier receives level-up events after the raising transaction commits.
type Notifier interface {
	LevelUp(ctx context.Context, event LevelUpEvent)
}

// Service owns every mutation of a user's balance, XP, level and spins.
// Each mutation locks the user row, applies the change and appends one
// hash-chained Entry inside a single transaction.
type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	notifier Notifier

	tx    *gorm.DB
	state *txState

	users   repository.Repository[account.User]
	entries repository.Repository[Entry]
	grants  repository.Repository[DiscountGrant]
}

type txState struct {
	events []LevelUpEvent
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Notifier Notifier `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		notifier: p.Notifier,

		users:   repository.ProvideStore[account.User](p.DB),
		entries: repository.ProvideStore[Entry](p.DB),
		grants:  repository.ProvideStore[DiscountGrant](p.DB),
	}
}

func (s *Service) bind(tx *gorm.DB, state *txState) *Service {
	bound := *s
	bound.tx = tx
	bound.state = state
	bound.users = s.users.WithTrx(tx)
	bound.entries = s.entries.WithTrx(tx)
	bound.grants = s.grants.WithTrx(tx)
	return &bound
}

// Transaction runs fn inside one database transaction with a ledger bound
// to it. Calls on an already bound ledger join the running transaction.
// Level-up events raised inside fn are published after commit.
func (s *Service) Transaction(ctx context.Context, fn func(tx *gorm.DB, l *Service) error) error {
	if s.tx != nil {
		return fn(s.tx, s)
	}

	state := &txState{}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, s.bind(tx, state))
	}); err != nil {
		return err
	}

	s.publish(ctx, state.events)
	return nil
}

func (s *Service) publish(ctx context.Context, events []LevelUpEvent) {
	if s.notifier == nil {
		return
	}
	for _, e := range events {
		s.notifier.LevelUp(ctx, e)
	}
}

// Lock loads the user row FOR UPDATE. It is the serialization point for
// every operation touching the user.
func (s *Service) Lock(ctx context.Context, userID string) (*account.User, error) {
	if userID == "" {
		return nil, ErrUnknownUser
	}

	user, err := s.users.FindOne(ctx, &account.User{ID: userID}, option.WithLockingUpdate())
	if err != nil {
		return nil, errutil.Internal("failed to lock user", err)
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}

func (s *Service) save(ctx context.Context, user *account.User, now time.Time) error {
	user.UpdatedAt = now
	return s.users.Update(ctx, user.ID, map[string]any{
		"balance":               user.Balance,
		"xp":                    user.XP,
		"level":                 user.Level,
		"wheel_spins_available": user.WheelSpinsAvailable,
		"updated_at":            now,
	})
}

func (s *Service) appendEntry(ctx context.Context, user *account.User, entry *Entry, now time.Time) error {
	last, err := s.entries.FindOne(ctx, &Entry{UserID: user.ID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "sequence",
		OrderBy: "desc",
		Allow:   map[string]bool{"sequence": true},
	}))
	if err != nil {
		return err
	}

	entry.ID = s.node.Generate().String()
	entry.UserID = user.ID
	entry.Sequence = 1
	entry.PreviousHash = genesisHash
	if last != nil {
		entry.Sequence = last.Sequence + 1
		entry.PreviousHash = last.Hash
	}
	entry.BalanceAfter = user.Balance
	entry.XPAfter = user.XP
	entry.LevelAfter = user.Level
	entry.SpinsAfter = user.WheelSpinsAvailable
	entry.CreatedAt = now
	entry.Hash = entry.GenerateHash()

	return s.entries.Create(ctx, entry)
}

// mutate locks the user, lets change edit both the user and its audit
// entry, then persists the two together.
func (s *Service) mutate(ctx context.Context, userID string, kind EntryKind, memo Memo, change func(u *account.User, e *Entry) error) (*account.User, error) {
	var out *account.User
	err := s.Transaction(ctx, func(_ *gorm.DB, l *Service) error {
		user, err := l.Lock(ctx, userID)
		if err != nil {
			return err
		}

		entry := &Entry{Kind: kind, Reference: memo.Reference, Description: memo.Description}
		if err := change(user, entry); err != nil {
			return err
		}

		// postgres keeps microseconds; the hash must survive a round trip
		now := time.Now().UTC().Truncate(time.Microsecond)
		if err := l.save(ctx, user, now); err != nil {
			return err
		}
		if err := l.appendEntry(ctx, user, entry, now); err != nil {
			return err
		}

		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal, memo Memo) (*account.User, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	user, err := s.mutate(ctx, userID, KindCredit, memo, func(u *account.User, e *Entry) error {
		u.Balance = u.Balance.Add(amount)
		e.Amount = amount
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("credit failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return user, nil
}

func (s *Service) Debit(ctx context.Context, userID string, amount decimal.Decimal, memo Memo) (*account.User, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	user, err := s.mutate(ctx, userID, KindDebit, memo, func(u *account.User, e *Entry) error {
		if u.Balance.LessThan(amount) {
			return errutil.WithMessage(ErrInsufficientFunds,
				fmt.Sprintf("insufficient balance: need %s, have %s", amount.StringFixed(2), u.Balance.StringFixed(2)))
		}
		u.Balance = u.Balance.Sub(amount)
		e.Amount = amount.Neg()
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("debit failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return user, nil
}

// ApplyXP adds XP, recomputes the level and grants one wheel spin per
// level gained.
func (s *Service) ApplyXP(ctx context.Context, userID string, delta int64, memo Memo) (*XPResult, error) {
	if delta < 0 {
		return nil, ErrInvalidXP
	}

	var result XPResult
	err := s.Transaction(ctx, func(_ *gorm.DB, l *Service) error {
		if delta == 0 {
			user, err := l.Lock(ctx, userID)
			if err != nil {
				return err
			}
			result = XPResult{OldLevel: user.Level, NewLevel: user.Level}
			return nil
		}

		if _, err := l.mutate(ctx, userID, KindXP, memo, func(u *account.User, e *Entry) error {
			p := leveling.Apply(u.XP, delta)
			gained := p.NewXP - p.OldXP
			u.XP = p.NewXP
			u.Level = p.NewLevel
			u.WheelSpinsAvailable += p.LevelsGained

			e.XPDelta = gained
			e.SpinsDelta = p.LevelsGained

			result = XPResult{
				XPGained:     gained,
				OldLevel:     p.OldLevel,
				NewLevel:     p.NewLevel,
				LevelUp:      p.LevelUp(),
				SpinsGranted: p.LevelsGained,
			}
			return nil
		}); err != nil {
			return err
		}

		if result.LevelUp {
			l.state.events = append(l.state.events, LevelUpEvent{
				UserID:       userID,
				OldLevel:     result.OldLevel,
				NewLevel:     result.NewLevel,
				SpinsGranted: result.SpinsGranted,
				Reference:    memo.Reference,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.LevelUp {
		logger.FromContext(ctx).Info("level up",
			zap.String("user_id", userID),
			zap.Int("old_level", result.OldLevel),
			zap.Int("new_level", result.NewLevel),
		)
	}
	return &result, nil
}

func (s *Service) GrantSpins(ctx context.Context, userID string, spins int, memo Memo) (*account.User, error) {
	if spins <= 0 {
		return nil, ErrInvalidSpins
	}

	return s.mutate(ctx, userID, KindSpinGrant, memo, func(u *account.User, e *Entry) error {
		u.WheelSpinsAvailable += spins
		e.SpinsDelta = spins
		return nil
	})
}

func (s *Service) ConsumeSpin(ctx context.Context, userID string, memo Memo) (*account.User, error) {
	return s.mutate(ctx, userID, KindSpinConsume, memo, func(u *account.User, e *Entry) error {
		if u.WheelSpinsAvailable <= 0 {
			return ErrNoSpinsAvailable
		}
		u.WheelSpinsAvailable--
		e.SpinsDelta = -1
		return nil
	})
}

// SetBalance overwrites the balance. Admin only.
func (s *Service) SetBalance(ctx context.Context, userID string, balance decimal.Decimal, memo Memo) (*account.User, error) {
	if balance.IsNegative() {
		return nil, errutil.WithMessage(ErrInvalidAmount, "balance must not be negative")
	}

	return s.mutate(ctx, userID, KindBalanceOverride, memo, func(u *account.User, e *Entry) error {
		e.Amount = balance.Sub(u.Balance)
		u.Balance = balance
		return nil
	})
}

// SetXP overwrites XP and recomputes the level without granting spins. Admin only.
func (s *Service) SetXP(ctx context.Context, userID string, xp int64, memo Memo) (*account.User, error) {
	if xp < 0 {
		return nil, ErrInvalidXP
	}
	if xp > leveling.MaxXP {
		return nil, errutil.WithMessage(ErrInvalidXP, fmt.Sprintf("xp must not exceed %d", leveling.MaxXP))
	}

	return s.mutate(ctx, userID, KindXPOverride, memo, func(u *account.User, e *Entry) error {
		e.XPDelta = xp - u.XP
		u.XP = xp
		u.Level = leveling.LevelOf(xp)
		return nil
	})
}

func (s *Service) GrantDiscount(ctx context.Context, userID string, percent decimal.Decimal, memo Memo) (*DiscountGrant, error) {
	if !percent.IsPositive() {
		return nil, errutil.WithMessage(ErrInvalidAmount, "discount must be greater than zero")
	}

	var grant *DiscountGrant
	err := s.Transaction(ctx, func(_ *gorm.DB, l *Service) error {
		if _, err := l.mutate(ctx, userID, KindDiscountGrant, memo, func(u *account.User, e *Entry) error {
			e.Description = fmt.Sprintf("%s%% discount", percent.String())
			if memo.Description != "" {
				e.Description = memo.Description + ": " + e.Description
			}
			return nil
		}); err != nil {
			return err
		}

		grant = &DiscountGrant{
			ID:        l.node.Generate().String(),
			UserID:    userID,
			Percent:   percent,
			Source:    memo.Reference,
			CreatedAt: time.Now().UTC(),
		}
		return l.grants.Create(ctx, grant)
	})
	if err != nil {
		return nil, err
	}

	return grant, nil
}

func (s *Service) ListDiscounts(ctx context.Context, userID string) ([]*DiscountGrant, error) {
	grants, err := s.grants.Find(ctx, &DiscountGrant{UserID: userID}, option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}))
	if err != nil {
		return nil, errutil.Internal("failed to list discounts", err)
	}
	return grants, nil
}

func (s *Service) History(ctx context.Context, userID string, page pagination.Pagination) ([]*Entry, *pagination.PageInfo, error) {
	entries, err := s.entries.Find(ctx, &Entry{UserID: userID},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query ledger entries", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, errutil.Internal("failed to list ledger entries", err)
	}

	entries, info := pagination.Page(entries, page.Limit, func(e *Entry) string { return e.ID })
	return entries, info, nil
}

// VerifyChain recomputes every hash of the user's chain and checks the
// sequence and previous-hash links.
func (s *Service) VerifyChain(ctx context.Context, userID string) (*VerifyResult, error) {
	entries, err := s.entries.Find(ctx, &Entry{UserID: userID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "sequence",
		OrderBy: "asc",
		Allow:   map[string]bool{"sequence": true},
	}))
	if err != nil {
		logger.FromContext(ctx).Error("failed to query Find entries", zap.Error(err))
		return nil, errutil.Internal("failed to load ledger", err)
	}

	return verify(entries), nil
}

func verify(entries []*Entry) *VerifyResult {
	lastHash := genesisHash
	for i, entry := range entries {
		if entry.Sequence != int64(i+1) || entry.PreviousHash != lastHash || entry.Hash != entry.GenerateHash() {
			return &VerifyResult{Valid: false, Entries: len(entries), BadID: entry.ID}
		}
		lastHash = entry.Hash
	}
	return &VerifyResult{Valid: true, Entries: len(entries)}
}
