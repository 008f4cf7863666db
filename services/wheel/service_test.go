package wheel

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
	"tsmarket/services/ledger"
	"tsmarket/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type lockedSource struct {
	mu    sync.Mutex
	draws []int64
	next  int
}

func (s *lockedSource) Int63n(n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.draws[s.next%len(s.draws)] % n
	s.next++
	return v, nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	ledger   *ledger.Service
	accounts *account.Service
}

func newFixture(t *testing.T, src Source) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &account.User{}, &ledger.Entry{}, &ledger.DiscountGrant{}, &WheelPrize{}, &SpinResult{})
	node := testutil.NewNode(t)

	f := &fixture{
		db:       db,
		ledger:   ledger.NewService(ledger.ServiceParams{DB: db, Node: node}),
		accounts: account.NewService(account.ServiceParams{DB: db, Node: node}),
	}
	f.svc = NewService(ServiceParams{DB: db, Node: node, Ledger: f.ledger, Source: src})
	return f
}

func (f *fixture) prize(t *testing.T, name string, kind PrizeType, value int64, p float64) *WheelPrize {
	t.Helper()
	prize, err := f.svc.CreatePrize(context.Background(), PrizeRequest{
		Name:        name,
		PrizeType:   kind,
		Value:       decimal.NewFromInt(value),
		Probability: p,
	})
	require.NoError(t, err)
	return prize
}

// user registers a player holding spins wheel spins.
func (f *fixture) user(t *testing.T, email string, spins int) *account.User {
	t.Helper()
	ctx := context.Background()

	user, err := f.accounts.Register(ctx, account.RegisterRequest{Email: email, Name: "Spinner"})
	require.NoError(t, err)
	if extra := spins - user.WheelSpinsAvailable; extra > 0 {
		user, err = f.ledger.GrantSpins(ctx, user.ID, extra, ledger.Memo{Reference: "test"})
		require.NoError(t, err)
	}
	if user.WheelSpinsAvailable > spins {
		for user.WheelSpinsAvailable > spins {
			user, err = f.ledger.ConsumeSpin(ctx, user.ID, ledger.Memo{Reference: "test"})
			require.NoError(t, err)
		}
	}
	return user
}

func (f *fixture) auditCount(t *testing.T, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&SpinResult{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestSpinAppliesSelectedPrize(t *testing.T) {
	f := newFixture(t, &lockedSource{draws: []int64{100000, 600000}})
	ctx := context.Background()
	f.prize(t, "10 Coins", PrizeCoins, 10, 0.5)
	f.prize(t, "150 XP", PrizeXP, 150, 0.2)
	user := f.user(t, "spin@example.com", 2)

	first, err := f.svc.Spin(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "10 Coins", first.Prize.Name)
	require.Equal(t, 1, first.SpinsRemaining)
	require.True(t, first.Effect.Balance.Equal(decimal.NewFromInt(10)))
	require.Equal(t, int64(700000), first.Audit.TotalWeight)
	require.Equal(t, int64(100000), first.Audit.Draw)

	second, err := f.svc.Spin(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "150 XP", second.Prize.Name)
	require.True(t, second.Effect.XP.LevelUp)
	// the consumed spin is replaced by the level-up spin
	require.Equal(t, 1, second.SpinsRemaining)

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(150), after.XP)
	require.Equal(t, 2, after.Level)
	require.Equal(t, 1, after.WheelSpinsAvailable)

	history, _, err := f.svc.History(ctx, user.ID, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestSpinWithoutSpins(t *testing.T) {
	f := newFixture(t, NewSeededSource(1))
	ctx := context.Background()
	f.prize(t, "10 Coins", PrizeCoins, 10, 1)
	user := f.user(t, "nospin@example.com", 0)

	_, err := f.svc.Spin(ctx, user.ID)
	require.ErrorIs(t, err, ledger.ErrNoSpinsAvailable)
	require.Zero(t, f.auditCount(t, user.ID))

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, after.Balance.IsZero())
}

func TestFailedDrawKeepsSpin(t *testing.T) {
	f := newFixture(t, NewSeededSource(1))
	ctx := context.Background()
	f.prize(t, "Nothing", PrizeCoins, 10, 0)
	user := f.user(t, "empty@example.com", 1)

	_, err := f.svc.Spin(ctx, user.ID)
	require.ErrorIs(t, err, ErrWheelEmpty)

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, after.WheelSpinsAvailable)
	require.Zero(t, f.auditCount(t, user.ID))
}

func TestSpinIgnoresStaleCache(t *testing.T) {
	f := newFixture(t, &lockedSource{draws: []int64{0}})
	ctx := context.Background()
	gone := f.prize(t, "Retired", PrizeCoins, 1000, 0.5)
	f.prize(t, "10 Coins", PrizeCoins, 10, 0.5)
	user := f.user(t, "stale@example.com", 1)

	cached, err := f.svc.ListPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 2)

	// removed by another instance; this process still caches it
	require.NoError(t, f.db.Delete(&WheelPrize{}, "id = ?", gone.ID).Error)

	outcome, err := f.svc.Spin(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "10 Coins", outcome.Prize.Name)
	require.Equal(t, int64(500000), outcome.Audit.TotalWeight)
}

func TestSpinSourceFailureKeepsSpin(t *testing.T) {
	f := newFixture(t, brokenSource{})
	ctx := context.Background()
	f.prize(t, "10 Coins", PrizeCoins, 10, 1)
	user := f.user(t, "entropy@example.com", 1)

	_, err := f.svc.Spin(ctx, user.ID)
	require.ErrorIs(t, err, ErrDrawFailed)

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, after.WheelSpinsAvailable)
	require.True(t, after.Balance.IsZero())
	require.Zero(t, f.auditCount(t, user.ID))
}

func TestConcurrentSpinsConserveSpins(t *testing.T) {
	f := newFixture(t, NewSeededSource(3))
	ctx := context.Background()
	f.prize(t, "5 Coins", PrizeCoins, 5, 0.6)
	f.prize(t, "20 Coins", PrizeCoins, 20, 0.4)
	user := f.user(t, "race@example.com", 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, empty int
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Spin(ctx, user.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ledger.ErrNoSpinsAvailable):
				empty++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, ok)
	require.Equal(t, 4, empty)
	require.Equal(t, int64(3), f.auditCount(t, user.ID))

	after, err := f.accounts.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, after.WheelSpinsAvailable)

	verify, err := f.ledger.VerifyChain(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, verify.Valid)
}

func TestPrizeAdminInvalidatesCache(t *testing.T) {
	f := newFixture(t, NewSeededSource(1))
	ctx := context.Background()
	first := f.prize(t, "10 Coins", PrizeCoins, 10, 0.5)

	prizes, err := f.svc.ListPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, prizes, 1)
	require.Equal(t, 0, prizes[0].Position)

	second := f.prize(t, "Discount", PrizeDiscount, 15, 0.1)
	require.Equal(t, 1, second.Position)

	prizes, err = f.svc.ListPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, prizes, 2)

	zero := 0
	updated, err := f.svc.UpdatePrize(ctx, second.ID, PrizeRequest{Name: "Big Discount", PrizeType: PrizeDiscount, Value: decimal.NewFromInt(20), Probability: 0.2, Position: &zero})
	require.NoError(t, err)
	require.Equal(t, "Big Discount", updated.Name)

	prizes, err = f.svc.ListPrizes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{first.ID, second.ID}, []string{prizes[0].ID, prizes[1].ID}, "equal positions fall back to id order")

	require.NoError(t, f.svc.DeletePrize(ctx, first.ID))
	require.ErrorIs(t, f.svc.DeletePrize(ctx, first.ID), ErrPrizeNotFound)

	prizes, err = f.svc.ListPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, prizes, 1)
}

func TestPrizeValidation(t *testing.T) {
	f := newFixture(t, NewSeededSource(1))
	ctx := context.Background()

	cases := []PrizeRequest{
		{Name: "", PrizeType: PrizeCoins, Value: decimal.NewFromInt(1), Probability: 0.1},
		{Name: "Too likely", PrizeType: PrizeCoins, Value: decimal.NewFromInt(1), Probability: 1.5},
		{Name: "Unknown", PrizeType: "car", Value: decimal.NewFromInt(1), Probability: 0.1},
		{Name: "Free", PrizeType: PrizeCoins, Value: decimal.Zero, Probability: 0.1},
		{Name: "Half XP", PrizeType: PrizeXP, Value: decimal.RequireFromString("0.5"), Probability: 0.1},
		{Name: "Endless XP", PrizeType: PrizeXP, Value: decimal.RequireFromString("10000000000000000000"), Probability: 0.1},
	}
	for _, req := range cases {
		_, err := f.svc.CreatePrize(ctx, req)
		require.ErrorIs(t, err, ErrInvalidPrize, req.Name)
	}
}

func TestSpinOverHTTP(t *testing.T) {
	f := newFixture(t, &lockedSource{draws: []int64{0}})
	router := testutil.NewRouter(t, f.accounts)
	RegisterRoutes(router, NewHandler(f.svc))
	f.prize(t, "25 Coins", PrizeCoins, 25, 1)
	user := f.user(t, "http@example.com", 1)

	w := testutil.Do(t, router.Engine, http.MethodGet, "/api/wheel/prizes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(t, router.Engine, http.MethodPost, "/api/wheel/spin", user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var outcome struct {
		Prize struct {
			Name string `json:"name"`
		} `json:"prize"`
		SpinsRemaining int `json:"spins_remaining"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	require.Equal(t, "25 Coins", outcome.Prize.Name)
	require.Zero(t, outcome.SpinsRemaining)

	w = testutil.Do(t, router.Engine, http.MethodPost, "/api/wheel/spin", user.ID, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = testutil.Do(t, router.Engine, http.MethodPost, "/api/admin/wheel/prizes", user.ID, PrizeRequest{Name: "x", PrizeType: PrizeCoins, Value: decimal.NewFromInt(1), Probability: 0.1})
	require.Equal(t, http.StatusForbidden, w.Code)
}
