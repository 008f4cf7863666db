package wheel

import (
	"context"
	"strings"
	"time"

	"tsmarket/pkg/config"
	"tsmarket/pkg/db/option"
	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/errutil"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/repository"
	"tsmarket/services/ledger"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCacheTTL = time.Minute

type Service struct {
	node   *snowflake.Node
	ledger *ledger.Service
	source Source
	cache  *PrizeCache

	prizes repository.Repository[WheelPrize]
	spins  repository.Repository[SpinResult]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Ledger *ledger.Service
	Config *config.Config `optional:"true"`
	Source Source         `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	ttl := defaultCacheTTL
	if p.Config != nil && p.Config.Game.PrizeCacheTTL > 0 {
		ttl = p.Config.Game.PrizeCacheTTL
	}
	src := p.Source
	if src == nil {
		src = NewCryptoSource()
	}

	return &Service{
		node:   p.Node,
		ledger: p.Ledger,
		source: src,
		cache:  NewPrizeCache(ttl),
		prizes: repository.ProvideStore[WheelPrize](p.DB),
		spins:  repository.ProvideStore[SpinResult](p.DB),
	}
}

// wheelOrder is the stable order prizes are walked in during a draw.
func wheelOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

func (s *Service) loadPrizes(ctx context.Context) ([]*WheelPrize, error) {
	return s.prizes.Find(ctx, &WheelPrize{}, wheelOrder)
}

func (s *Service) ListPrizes(ctx context.Context) ([]*WheelPrize, error) {
	prizes, err := s.cache.Load(ctx, s.loadPrizes)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load wheel prizes", zap.Error(err))
		return nil, errutil.Internal("failed to load wheel prizes", err)
	}
	return prizes, nil
}

// Spin consumes one spin, draws a prize, applies it and records the draw in
// a single transaction. Nothing is kept when any step fails. Prizes are read
// inside the transaction, never from the cache.
func (s *Service) Spin(ctx context.Context, userID string) (*SpinOutcome, error) {
	zapLog := logger.FromContext(ctx).With(zap.String("user_id", userID))

	spinID := s.node.Generate().String()
	memo := ledger.Memo{Reference: "wheel:" + spinID}

	var outcome SpinOutcome
	err := s.ledger.Transaction(ctx, func(tx *gorm.DB, l *ledger.Service) error {
		if _, err := l.ConsumeSpin(ctx, userID, ledger.Memo{Reference: memo.Reference, Description: "wheel spin"}); err != nil {
			return err
		}

		prizes, err := s.prizes.WithTrx(tx).Find(ctx, &WheelPrize{}, wheelOrder)
		if err != nil {
			return errutil.Internal("failed to load wheel prizes", err)
		}

		draw, err := Select(prizes, s.source)
		if err != nil {
			return err
		}
		prize := prizes[draw.Index]

		effect, ok := prize.PrizeType.effect()
		if !ok {
			return errutil.WithMessage(ErrInvalidPrize, "prize "+prize.ID+" has unknown type "+string(prize.PrizeType))
		}
		applied, err := l.ApplyEffect(ctx, userID, effect, prize.Value, ledger.Memo{
			Reference:   memo.Reference,
			Description: "wheel prize: " + prize.Name,
		})
		if err != nil {
			return err
		}

		audit := &SpinResult{
			ID:          spinID,
			UserID:      userID,
			PrizeID:     prize.ID,
			PrizeName:   prize.Name,
			PrizeType:   prize.PrizeType,
			Value:       prize.Value,
			Draw:        draw.Value,
			TotalWeight: draw.TotalWeight,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.spins.WithTrx(tx).Create(ctx, audit); err != nil {
			return errutil.Internal("failed to record spin", err)
		}

		outcome = SpinOutcome{
			Prize:          prize,
			SpinsRemaining: applied.Spins,
			Effect:         applied,
			Audit:          audit,
		}
		return nil
	})
	if err != nil {
		zapLog.Warn("spin failed", zap.Error(err))
		return nil, err
	}

	spinsTotal.WithLabelValues(string(outcome.Prize.PrizeType)).Inc()
	zapLog.Info("wheel spun",
		zap.String("prize_id", outcome.Prize.ID),
		zap.Int64("draw", outcome.Audit.Draw),
		zap.Int64("total_weight", outcome.Audit.TotalWeight),
	)
	return &outcome, nil
}

func (s *Service) History(ctx context.Context, userID string, page pagination.Pagination) ([]*SpinResult, *pagination.PageInfo, error) {
	results, err := s.spins.Find(ctx, &SpinResult{UserID: userID},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		return nil, nil, errutil.Internal("failed to list spins", err)
	}

	results, info := pagination.Page(results, page.Limit, func(r *SpinResult) string { return r.ID })
	return results, info, nil
}

func validatePrize(req PrizeRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return errutil.WithMessage(ErrInvalidPrize, "prize name is required")
	}
	if req.Probability < 0 || req.Probability > 1 {
		return errutil.WithMessage(ErrInvalidPrize, "probability must be between 0 and 1")
	}
	effect, ok := req.PrizeType.effect()
	if !ok {
		return errutil.WithMessage(ErrInvalidPrize, "prize_type must be coins, xp or discount")
	}
	if err := ledger.ValidateEffect(effect, req.Value); err != nil {
		return errutil.Wrap(ErrInvalidPrize, err)
	}
	return nil
}

// CreatePrize appends the prize to the end of the wheel unless a position
// is given.
func (s *Service) CreatePrize(ctx context.Context, req PrizeRequest) (*WheelPrize, error) {
	if err := validatePrize(req); err != nil {
		return nil, err
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		count, err := s.prizes.Count(ctx, &WheelPrize{})
		if err != nil {
			return nil, errutil.Internal("failed to count prizes", err)
		}
		position = int(count)
	}

	now := time.Now().UTC()
	prize := &WheelPrize{
		ID:          s.node.Generate().String(),
		Name:        strings.TrimSpace(req.Name),
		PrizeType:   req.PrizeType,
		Value:       req.Value,
		Probability: req.Probability,
		Color:       req.Color,
		Position:    position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.prizes.Create(ctx, prize); err != nil {
		return nil, errutil.Internal("failed to create prize", err)
	}

	s.cache.Invalidate()
	logger.FromContext(ctx).Info("wheel prize created", zap.String("prize_id", prize.ID))
	return prize, nil
}

func (s *Service) getPrize(ctx context.Context, id string) (*WheelPrize, error) {
	prize, err := s.prizes.FindOne(ctx, &WheelPrize{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to load prize", err)
	}
	if prize == nil {
		return nil, ErrPrizeNotFound
	}
	return prize, nil
}

func (s *Service) UpdatePrize(ctx context.Context, id string, req PrizeRequest) (*WheelPrize, error) {
	if err := validatePrize(req); err != nil {
		return nil, err
	}
	if _, err := s.getPrize(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":        strings.TrimSpace(req.Name),
		"prize_type":  req.PrizeType,
		"value":       req.Value,
		"probability": req.Probability,
		"color":       req.Color,
		"updated_at":  time.Now().UTC(),
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if err := s.prizes.Update(ctx, id, updates); err != nil {
		return nil, errutil.Internal("failed to update prize", err)
	}

	s.cache.Invalidate()
	return s.getPrize(ctx, id)
}

func (s *Service) DeletePrize(ctx context.Context, id string) error {
	if _, err := s.getPrize(ctx, id); err != nil {
		return err
	}
	if err := s.prizes.Delete(ctx, id); err != nil {
		return errutil.Internal("failed to delete prize", err)
	}

	s.cache.Invalidate()
	return nil
}
