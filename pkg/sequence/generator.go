package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"tsmarket/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

const (
	PrefixOrder = "ORD"
	PrefixTopup = "TOP"
)

// Generator hands out human readable codes for orders and top-up requests.
type Generator interface {
	NextOrderCode(ctx context.Context) (string, error)
	NextTopupCode(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
	now func() time.Time
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
		now: time.Now,
	}
}

func (g *RedisGenerator) NextOrderCode(ctx context.Context) (string, error) {
	return g.nextDailyCode(ctx, PrefixOrder)
}

func (g *RedisGenerator) NextTopupCode(ctx context.Context) (string, error) {
	return g.nextDailyCode(ctx, PrefixTopup)
}

// nextDailyCode returns PREFIX-YYMMDD-SEQ plus two random characters. The
// counter key expires at the end of the UTC day.
func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix string) (string, error) {
	now := g.now().UTC()
	today := now.Format("060102")
	key := rediskey.BuildSequenceKey(prefix, today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		endOfDay := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		_ = g.rdb.ExpireAt(ctx, key, endOfDay).Err()
	}

	return Format(prefix, today, seq)
}

// Format renders a sequence as base36, padded to three characters.
func Format(prefix, day string, seq int64) (string, error) {
	encodedSeq := strings.ToUpper(fmt.Sprintf("%03s", strconv.FormatInt(seq, 36)))

	randSuffix, err := randomAlphaNumeric(2)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s%s", prefix, day, encodedSeq, randSuffix), nil
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}
