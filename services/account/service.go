package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"tsmarket/pkg/accesscontrol"
	"tsmarket/pkg/config"
	"tsmarket/pkg/db/option"
	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/services/leveling"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRegistrationSpins = 1

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	registrationSpins int

	users repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	spins := defaultRegistrationSpins
	if p.Config != nil && p.Config.Game.RegistrationSpins >= 0 {
		spins = p.Config.Game.RegistrationSpins
	}

	return &Service{
		db:                p.DB,
		node:              p.Node,
		registrationSpins: spins,
		users:             repository.ProvideStore[User](p.DB),
	}
}

// Profile is a user together with their position inside the current level.
type Profile struct {
	*User
	Standing leveling.Standing `json:"standing"`
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	zapLog := logger.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return nil, ErrInvalidProfile
	}

	now := time.Now().UTC()
	user := &User{
		ID:                  s.node.Generate().String(),
		Email:               email,
		Name:                name,
		Balance:             decimal.Zero,
		XP:                  0,
		Level:               1,
		WheelSpinsAvailable: s.registrationSpins,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		zapLog.Error("failed to create user", zap.Error(err))
		return nil, errutil.Internal("failed to register user", err)
	}

	zapLog.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.users.FindOne(ctx, &User{ID: userID})
	if err != nil {
		logger.FromContext(ctx).Error("failed to query user", zap.String("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.users.FindOne(ctx, &User{Email: email})
	if err != nil {
		return nil, errutil.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Standing: leveling.Describe(user.XP)}, nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]*User, *pagination.PageInfo, error) {
	users, err := s.users.Find(ctx, &User{},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		return nil, nil, errutil.Internal("failed to list users", err)
	}

	users, info := pagination.Page(users, page.Limit, func(u *User) string { return u.ID })
	return users, info, nil
}

func (s *Service) SetAdmin(ctx context.Context, userID string, isAdmin bool) (*User, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, userID, map[string]any{
		"is_admin":   isAdmin,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		return nil, errutil.Internal("failed to update user", err)
	}

	logger.FromContext(ctx).Info("admin flag changed", zap.String("user_id", userID), zap.Bool("is_admin", isAdmin))
	return s.Get(ctx, userID)
}

// Delete removes a user. Admins cannot remove themselves.
func (s *Service) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrCannotDeleteSelf
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return errutil.Internal("failed to delete user", err)
	}

	logger.FromContext(ctx).Info("user deleted", zap.String("user_id", userID), zap.String("actor_id", actorID))
	return nil
}

func (s *Service) RoleOf(ctx context.Context, userID string) (string, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.IsAdmin {
		return accesscontrol.RoleAdmin, nil
	}
	return accesscontrol.RoleMember, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx, &User{})
}
