package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tsmarket/pkg/db/option"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/repository"
	"tsmarket/services/account"
	"tsmarket/services/leveling"
	"tsmarket/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	withTrxFn     func(tx *gorm.DB) repository.Repository[T]
	findFn        func(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	findOneFn     func(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	createFn      func(ctx context.Context, resource *T) error
	updateFn      func(ctx context.Context, resourceID string, resource any) error
	deleteFn      func(ctx context.Context, resourceID string) error
	batchCreateFn func(ctx context.Context, resources []*T) error
	batchUpdateFn func(ctx context.Context, resources []*T) error
	countFn       func(ctx context.Context, query *T) (int64, error)
}

func (m *repoMock[T]) WithTrx(tx *gorm.DB) repository.Repository[T] {
	if m.withTrxFn != nil {
		return m.withTrxFn(tx)
	}
	return m
}

func (m *repoMock[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) Create(ctx context.Context, resource *T) error {
	if m.createFn != nil {
		return m.createFn(ctx, resource)
	}
	return nil
}

func (m *repoMock[T]) Update(ctx context.Context, resourceID string, resource any) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, resourceID, resource)
	}
	return nil
}

func (m *repoMock[T]) Delete(ctx context.Context, resourceID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, resourceID)
	}
	return nil
}

func (m *repoMock[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if m.batchCreateFn != nil {
		return m.batchCreateFn(ctx, resources)
	}
	return nil
}

func (m *repoMock[T]) BatchUpdate(ctx context.Context, resources []*T) error {
	if m.batchUpdateFn != nil {
		return m.batchUpdateFn(ctx, resources)
	}
	return nil
}

func (m *repoMock[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, query)
	}
	return 0, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []LevelUpEvent
}

func (n *recordingNotifier) LevelUp(_ context.Context, e LevelUpEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &account.User{}, &Entry{}, &DiscountGrant{})
	return NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)}), db
}

func seedUser(t *testing.T, db *gorm.DB, id string, balance string, xp int64, spins int) *account.User {
	t.Helper()
	user := &account.User{
		ID:                  id,
		Email:               id + "@example.com",
		Name:                id,
		Balance:             decimal.RequireFromString(balance),
		XP:                  xp,
		Level:               1,
		WheelSpinsAvailable: spins,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func loadUser(t *testing.T, db *gorm.DB, id string) *account.User {
	t.Helper()
	var user account.User
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return &user
}

func countEntries(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&Entry{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestNewService(t *testing.T) {
	svc, _ := newTestService(t)

	require.NotNil(t, svc.users)
	require.NotNil(t, svc.entries)
	require.NotNil(t, svc.grants)
	require.Nil(t, svc.tx)
}

func TestCreditAndDebit(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 0)

	user, err := svc.Credit(ctx, "u1", decimal.RequireFromString("100.50"), Memo{Reference: "topup_code:WELCOME100"})
	require.NoError(t, err)
	require.True(t, user.Balance.Equal(decimal.RequireFromString("100.50")))

	user, err = svc.Debit(ctx, "u1", decimal.RequireFromString("40.25"), Memo{Reference: "order:1"})
	require.NoError(t, err)
	require.True(t, user.Balance.Equal(decimal.RequireFromString("60.25")))

	stored := loadUser(t, db, "u1")
	require.True(t, stored.Balance.Equal(decimal.RequireFromString("60.25")))
	require.Equal(t, int64(2), countEntries(t, db, "u1"))
}

func TestDebitInsufficientFunds(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "10", 0, 0)

	_, err := svc.Debit(ctx, "u1", decimal.NewFromInt(11), Memo{})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusUnprocessableEntity, be.Status())

	require.True(t, loadUser(t, db, "u1").Balance.Equal(decimal.NewFromInt(10)))
	require.Equal(t, int64(0), countEntries(t, db, "u1"))
}

func TestCreditValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 0)

	_, err := svc.Credit(ctx, "u1", decimal.Zero, Memo{})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Credit(ctx, "ghost", decimal.NewFromInt(5), Memo{})
	require.ErrorIs(t, err, ErrUnknownUser)
}

// TestConcurrentDebitsNeverOverdraw runs on the single-connection sqlite
// database, where the debits are serialized by the pool.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, db := newTestService(t)
	requireDebitsNeverOverdraw(t, svc, db)
}

// TestConcurrentDebitsOnPostgres contends on the user row lock. It needs
// TSMARKET_TEST_POSTGRES_DSN.
func TestConcurrentDebitsOnPostgres(t *testing.T) {
	db := testutil.NewPostgresDB(t, &account.User{}, &Entry{}, &DiscountGrant{})
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	requireDebitsNeverOverdraw(t, svc, db)
}

func requireDebitsNeverOverdraw(t *testing.T, svc *Service, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	seedUser(t, db, "u1", "100", 0, 0)

	const workers = 15
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, "u1", decimal.NewFromInt(10), Memo{Reference: "order"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientFunds):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	require.Equal(t, 5, insufficient)
	require.True(t, loadUser(t, db, "u1").Balance.IsZero())

	result, err := svc.VerifyChain(ctx, "u1")
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, 10, result.Entries)
}

func TestApplyXPLevelUpGrantsSpins(t *testing.T) {
	svc, db := newTestService(t)
	notifier := &recordingNotifier{}
	svc.notifier = notifier
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 0)

	result, err := svc.ApplyXP(ctx, "u1", 150, Memo{Reference: "order:1"})
	require.NoError(t, err)
	require.True(t, result.LevelUp)
	require.Equal(t, 1, result.OldLevel)
	require.Equal(t, 2, result.NewLevel)
	require.Equal(t, 1, result.SpinsGranted)

	user := loadUser(t, db, "u1")
	require.Equal(t, int64(150), user.XP)
	require.Equal(t, 2, user.Level)
	require.Equal(t, 1, user.WheelSpinsAvailable)

	// 150 -> 550 crosses 350 (level 3) and 600 is level 4's threshold
	result, err = svc.ApplyXP(ctx, "u1", 400, Memo{})
	require.NoError(t, err)
	require.Equal(t, 3, result.NewLevel)
	require.Equal(t, 1, result.SpinsGranted)

	result, err = svc.ApplyXP(ctx, "u1", 1000, Memo{})
	require.NoError(t, err)
	require.Equal(t, 3, result.OldLevel)
	require.Equal(t, 6, result.NewLevel)
	require.Equal(t, 3, result.SpinsGranted)
	require.Equal(t, 5, loadUser(t, db, "u1").WheelSpinsAvailable)

	require.Len(t, notifier.events, 3)
	require.Equal(t, LevelUpEvent{UserID: "u1", OldLevel: 1, NewLevel: 2, SpinsGranted: 1, Reference: "order:1"}, notifier.events[0])
}

func TestApplyXPWithoutLevelUp(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 0)

	result, err := svc.ApplyXP(ctx, "u1", 149, Memo{})
	require.NoError(t, err)
	require.False(t, result.LevelUp)
	require.Equal(t, 0, result.SpinsGranted)

	result, err = svc.ApplyXP(ctx, "u1", 0, Memo{})
	require.NoError(t, err)
	require.Equal(t, 1, result.NewLevel)
	require.Equal(t, int64(1), countEntries(t, db, "u1"))

	_, err = svc.ApplyXP(ctx, "u1", -1, Memo{})
	require.ErrorIs(t, err, ErrInvalidXP)
}

func TestRolledBackTransactionPublishesNothing(t *testing.T) {
	svc, db := newTestService(t)
	notifier := &recordingNotifier{}
	svc.notifier = notifier
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 0)

	boom := errors.New("boom")
	err := svc.Transaction(ctx, func(_ *gorm.DB, l *Service) error {
		if _, err := l.ApplyXP(ctx, "u1", 500, Memo{}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Empty(t, notifier.events)
	user := loadUser(t, db, "u1")
	require.Equal(t, int64(0), user.XP)
	require.Equal(t, 0, user.WheelSpinsAvailable)
	require.Equal(t, int64(0), countEntries(t, db, "u1"))
}

func TestSpins(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 1)

	user, err := svc.ConsumeSpin(ctx, "u1", Memo{})
	require.NoError(t, err)
	require.Equal(t, 0, user.WheelSpinsAvailable)

	_, err = svc.ConsumeSpin(ctx, "u1", Memo{})
	require.ErrorIs(t, err, ErrNoSpinsAvailable)

	_, err = svc.GrantSpins(ctx, "u1", 0, Memo{})
	require.ErrorIs(t, err, ErrInvalidSpins)

	user, err = svc.GrantSpins(ctx, "u1", 2, Memo{})
	require.NoError(t, err)
	require.Equal(t, 2, user.WheelSpinsAvailable)
}

func TestAdminOverrides(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "50", 0, 0)

	user, err := svc.SetXP(ctx, "u1", 350, Memo{})
	require.NoError(t, err)
	require.Equal(t, 3, user.Level)
	require.Equal(t, 0, user.WheelSpinsAvailable)

	user, err = svc.SetXP(ctx, "u1", 10, Memo{})
	require.NoError(t, err)
	require.Equal(t, 1, user.Level)

	user, err = svc.SetBalance(ctx, "u1", decimal.NewFromInt(7), Memo{})
	require.NoError(t, err)
	require.True(t, user.Balance.Equal(decimal.NewFromInt(7)))

	_, err = svc.SetBalance(ctx, "u1", decimal.NewFromInt(-1), Memo{})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.SetXP(ctx, "u1", math.MaxInt64, Memo{})
	require.ErrorIs(t, err, ErrInvalidXP)

	user, err = svc.SetXP(ctx, "u1", leveling.MaxXP, Memo{})
	require.NoError(t, err)
	require.Equal(t, leveling.MaxLevel, user.Level)
}

func TestApplyXPSaturatesAtCap(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", leveling.MaxXP-100, 0)

	res, err := svc.ApplyXP(ctx, "u1", math.MaxInt64, Memo{Reference: "boost"})
	require.NoError(t, err)
	require.Equal(t, int64(100), res.XPGained)

	user := loadUser(t, db, "u1")
	require.Equal(t, leveling.MaxXP, user.XP)
	require.Equal(t, leveling.MaxLevel, user.Level)

	result, err := svc.VerifyChain(ctx, "u1")
	require.NoError(t, err)
	require.True(t, result.Valid)

	require.ErrorIs(t, ValidateEffect(EffectXP, decimal.NewFromInt(math.MaxInt64)), ErrInvalidXP)
}

func TestGrantDiscount(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 0)

	grant, err := svc.GrantDiscount(ctx, "u1", decimal.NewFromInt(10), Memo{Reference: "reward:5"})
	require.NoError(t, err)
	require.Equal(t, "reward:5", grant.Source)

	grants, err := svc.ListDiscounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, int64(1), countEntries(t, db, "u1"))
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 0, 0)

	_, err := svc.Credit(ctx, "u1", decimal.NewFromInt(100), Memo{})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, "u1", decimal.NewFromInt(30), Memo{})
	require.NoError(t, err)

	result, err := svc.VerifyChain(ctx, "u1")
	require.NoError(t, err)
	require.True(t, result.Valid)

	require.NoError(t, db.Model(&Entry{}).Where("user_id = ? AND sequence = ?", "u1", 1).
		Update("amount", decimal.NewFromInt(1000)).Error)

	result, err = svc.VerifyChain(ctx, "u1")
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestVerifyChainWithMockedEntries(t *testing.T) {
	now := time.Now().UTC()
	first := &Entry{ID: "e1", UserID: "u1", Sequence: 1, Kind: KindCredit, Amount: decimal.NewFromInt(100), PreviousHash: genesisHash, CreatedAt: now}
	first.Hash = first.GenerateHash()

	second := &Entry{ID: "e2", UserID: "u1", Sequence: 2, Kind: KindDebit, Amount: decimal.NewFromInt(-50), PreviousHash: first.Hash, CreatedAt: now.Add(time.Minute)}
	second.Hash = second.GenerateHash()

	svc := &Service{
		entries: &repoMock[Entry]{
			findFn: func(ctx context.Context, _ *Entry, opts ...option.QueryOption) ([]*Entry, error) {
				return []*Entry{first, second}, nil
			},
		},
	}

	result, err := svc.VerifyChain(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, result.Valid)

	second.PreviousHash = "forged"
	result, err = svc.VerifyChain(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, "e2", result.BadID)
}

func TestLockUnknownUser(t *testing.T) {
	svc := &Service{
		users: &repoMock[account.User]{
			findOneFn: func(ctx context.Context, _ *account.User, opts ...option.QueryOption) (*account.User, error) {
				return nil, nil
			},
		},
	}

	_, err := svc.Lock(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownUser)

	_, err = svc.Lock(context.Background(), "")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestApplyEffect(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "0", 100, 0)

	res, err := svc.ApplyEffect(ctx, "u1", EffectCoins, decimal.NewFromInt(25), Memo{Reference: "wheel:1"})
	require.NoError(t, err)
	require.True(t, res.Balance.Equal(decimal.NewFromInt(25)))

	res, err = svc.ApplyEffect(ctx, "u1", EffectXP, decimal.NewFromInt(50), Memo{Reference: "wheel:2"})
	require.NoError(t, err)
	require.NotNil(t, res.XP)
	require.True(t, res.XP.LevelUp)
	require.Equal(t, 2, res.XP.NewLevel)

	res, err = svc.ApplyEffect(ctx, "u1", EffectDiscount, decimal.NewFromInt(10), Memo{Reference: "reward:L3"})
	require.NoError(t, err)
	require.NotNil(t, res.Discount)

	_, err = svc.ApplyEffect(ctx, "u1", EffectXP, decimal.RequireFromString("1.5"), Memo{})
	require.ErrorIs(t, err, ErrInvalidXP)

	_, err = svc.ApplyEffect(ctx, "u1", EffectDiscount, decimal.NewFromInt(101), Memo{})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.ApplyEffect(ctx, "u1", "jackpot", decimal.NewFromInt(1), Memo{})
	require.ErrorIs(t, err, ErrUnknownEffect)

	user := loadUser(t, db, "u1")
	require.Equal(t, int64(150), user.XP)
	require.Equal(t, 1, user.WheelSpinsAvailable)
	require.Equal(t, int64(3), countEntries(t, db, "u1"))
}
