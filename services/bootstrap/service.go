package bootstrap

import (
	"context"
	"errors"

	"tsmarket/pkg/config"
	"tsmarket/services/account"
	"tsmarket/services/catalog"
	"tsmarket/services/ledger"
	"tsmarket/services/notification"
	"tsmarket/services/order"
	"tsmarket/services/reward"
	"tsmarket/services/topup"
	"tsmarket/services/wheel"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table the API owns, in creation order.
func Models() []any {
	return []any{
		&account.User{},
		&ledger.Entry{},
		&ledger.DiscountGrant{},
		&catalog.Category{},
		&catalog.Product{},
		&order.Order{},
		&order.OrderItem{},
		&reward.Reward{},
		&reward.UserRewardClaim{},
		&wheel.WheelPrize{},
		&wheel.SpinResult{},
		&topup.TopupRequest{},
		&topup.TopupCode{},
		&topup.History{},
		&topup.PaymentSettings{},
		&notification.Notification{},
	}
}

type Service struct {
	db     *gorm.DB
	config *config.Config

	accounts *account.Service
	ledger   *ledger.Service
	catalog  *catalog.Service
	rewards  *reward.Service
	wheel    *wheel.Service
	topup    *topup.Service
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Config   *config.Config
	Accounts *account.Service
	Ledger   *ledger.Service
	Catalog  *catalog.Service
	Rewards  *reward.Service
	Wheel    *wheel.Service
	Topup    *topup.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		config:   p.Config,
		accounts: p.Accounts,
		ledger:   p.Ledger,
		catalog:  p.Catalog,
		rewards:  p.Rewards,
		wheel:    p.Wheel,
		topup:    p.Topup,
	}
}

func (s *Service) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		zap.L().Error("[bootstrap] migration failed", zap.Error(err))
		return err
	}
	zap.L().Info("[bootstrap] schema migrated")
	return nil
}

// Report counts what a Seed call inserted.
type Report struct {
	Categories int  `json:"categories"`
	Products   int  `json:"products"`
	Rewards    int  `json:"rewards"`
	Prizes     int  `json:"prizes"`
	Codes      int  `json:"codes"`
	Admin      bool `json:"admin"`
}

// Seed loads the demo store. Each group is skipped when its table already
// has rows, so running it twice is harmless.
func (s *Service) Seed(ctx context.Context) (*Report, error) {
	report := &Report{}

	if !s.config.Seed.DemoCodesOnly {
		if err := s.seedCatalog(ctx, report); err != nil {
			return nil, err
		}
		if err := s.seedRewards(ctx, report); err != nil {
			return nil, err
		}
		if err := s.seedPrizes(ctx, report); err != nil {
			return nil, err
		}
		if err := s.seedAdmin(ctx, report); err != nil {
			return nil, err
		}
	}
	if err := s.seedCodes(ctx, report); err != nil {
		return nil, err
	}

	zap.L().Info("[bootstrap] seed finished",
		zap.Int("categories", report.Categories),
		zap.Int("products", report.Products),
		zap.Int("rewards", report.Rewards),
		zap.Int("prizes", report.Prizes),
		zap.Int("codes", report.Codes),
		zap.Bool("admin", report.Admin),
	)
	return report, nil
}

func (s *Service) seedCatalog(ctx context.Context, report *Report) error {
	existing, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		zap.L().Info("[bootstrap] catalog already seeded")
		return nil
	}

	slugs := make(map[string]string, len(seedCategories))
	for _, req := range seedCategories {
		category, err := s.catalog.CreateCategory(ctx, req)
		if err != nil {
			return err
		}
		slugs[category.Slug] = category.ID
		report.Categories++
	}

	for _, p := range seedProducts {
		req := p.req
		req.CategoryID = slugs[p.category]
		if _, err := s.catalog.CreateProduct(ctx, req); err != nil {
			return err
		}
		report.Products++
	}
	return nil
}

func (s *Service) seedRewards(ctx context.Context, report *Report) error {
	existing, err := s.rewards.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, req := range seedRewards {
		if _, err := s.rewards.Create(ctx, req); err != nil {
			return err
		}
		report.Rewards++
	}
	return nil
}

func (s *Service) seedPrizes(ctx context.Context, report *Report) error {
	existing, err := s.wheel.ListPrizes(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, req := range seedPrizes {
		if _, err := s.wheel.CreatePrize(ctx, req); err != nil {
			return err
		}
		report.Prizes++
	}
	return nil
}

func (s *Service) seedCodes(ctx context.Context, report *Report) error {
	for _, req := range seedCodes {
		_, err := s.topup.CreateCode(ctx, req)
		if errors.Is(err, topup.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return err
		}
		report.Codes++
	}
	return nil
}

// seedAdmin registers the configured admin account once and gives it a
// stocked wallet.
func (s *Service) seedAdmin(ctx context.Context, report *Report) error {
	cfg := s.config.Seed
	if cfg.AdminEmail == "" {
		return nil
	}
	if _, err := s.accounts.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, account.ErrUserNotFound) {
		return err
	}

	admin, err := s.accounts.Register(ctx, account.RegisterRequest{Email: cfg.AdminEmail, Name: cfg.AdminName})
	if err != nil {
		return err
	}
	if _, err := s.accounts.SetAdmin(ctx, admin.ID, true); err != nil {
		return err
	}

	balance, err := decimal.NewFromString(cfg.AdminBalance)
	if err != nil {
		balance = decimal.Zero
	}
	memo := ledger.Memo{Reference: "seed", Description: "seeded admin account"}
	err = s.ledger.Transaction(ctx, func(_ *gorm.DB, l *ledger.Service) error {
		if _, err := l.SetBalance(ctx, admin.ID, balance, memo); err != nil {
			return err
		}
		if _, err := l.SetXP(ctx, admin.ID, adminXP, memo); err != nil {
			return err
		}
		if extra := adminSpins - admin.WheelSpinsAvailable; extra > 0 {
			if _, err := l.GrantSpins(ctx, admin.ID, extra, memo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	report.Admin = true
	return nil
}
