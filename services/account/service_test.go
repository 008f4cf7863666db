package account

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tsmarket/pkg/accesscontrol"
	"tsmarket/pkg/config"
	"tsmarket/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &User{})
	return NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
}

func TestRegisterGrantsRegistrationSpin(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register(context.Background(), RegisterRequest{Email: " Gamer@Example.com ", Name: "Gamer"})
	require.NoError(t, err)
	require.Equal(t, "gamer@example.com", user.Email)
	require.Equal(t, 1, user.Level)
	require.Equal(t, 1, user.WheelSpinsAvailable)
	require.True(t, user.Balance.IsZero())
}

func TestRegisterUsesConfiguredSpins(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	cfg := &config.Config{}
	cfg.Game.RegistrationSpins = 3
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t), Config: cfg})

	user, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.co", Name: "A"})
	require.NoError(t, err)
	require.Equal(t, 3, user.WheelSpinsAvailable)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "dup@example.com", Name: "One"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Email: "DUP@example.com", Name: "Two"})
	require.ErrorIs(t, err, ErrEmailTaken)

	user, err := svc.GetByEmail(ctx, " Dup@Example.com ")
	require.NoError(t, err)
	require.Equal(t, "One", user.Name)

	_, err = svc.GetByEmail(ctx, "")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "404")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileIncludesStanding(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Email: "p@example.com", Name: "P"})
	require.NoError(t, err)
	require.NoError(t, svc.users.Update(ctx, user.ID, map[string]any{"xp": 200, "level": 2}))

	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, profile.Standing.Level)
	require.Equal(t, int64(50), profile.Standing.XPIntoLevel)
}

func TestRoleAndAdminToggle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Email: "r@example.com", Name: "R"})
	require.NoError(t, err)

	role, err := svc.RoleOf(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, accesscontrol.RoleMember, role)

	updated, err := svc.SetAdmin(ctx, user.ID, true)
	require.NoError(t, err)
	require.True(t, updated.IsAdmin)

	role, err = svc.RoleOf(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, accesscontrol.RoleAdmin, role)
}

func TestDeleteRejectsSelf(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Email: "d@example.com", Name: "D"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, user.ID, user.ID), ErrCannotDeleteSelf)
	require.NoError(t, svc.Delete(ctx, "admin-1", user.ID))

	_, err = svc.Get(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	router := testutil.NewRouter(t, svc)
	RegisterRoutes(router, NewHandler(svc))

	member, err := svc.Register(ctx, RegisterRequest{Email: "m@example.com", Name: "M"})
	require.NoError(t, err)
	admin, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	_, err = svc.SetAdmin(ctx, admin.ID, true)
	require.NoError(t, err)

	w := testutil.Do(t, router.Engine, http.MethodGet, "/api/admin/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.Do(t, router.Engine, http.MethodGet, "/api/admin/users", member.ID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(t, router.Engine, http.MethodGet, "/api/admin/users", admin.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
}

func TestRegisterAndMeOverHTTP(t *testing.T) {
	svc := newTestService(t)
	router := testutil.NewRouter(t, svc)
	RegisterRoutes(router, NewHandler(svc))

	w := testutil.Do(t, router.Engine, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad", "name": "X"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(t, router.Engine, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "h@example.com", "name": "H"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = testutil.Do(t, router.Engine, http.MethodGet, "/api/me", created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		ID       string `json:"id"`
		Standing struct {
			Level int `json:"level"`
		} `json:"standing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	require.Equal(t, created.ID, profile.ID)
	require.Equal(t, 1, profile.Standing.Level)
}
