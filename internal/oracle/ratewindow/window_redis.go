package ratewindow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "verivote/pkg/domain"
	"verivote/pkg/requestcontext"
)

// RedisWindow keeps a per-wallet sorted set of submission timestamps so
// multiple oracle instances share one rate-limit view. Entries older than
// the window are trimmed on every read.
type RedisWindow struct {
	client *redis.Client
	window time.Duration
	prefix string
}

func NewRedisWindow(client *redis.Client, window time.Duration) *RedisWindow {
	return &RedisWindow{client: client, window: window, prefix: "verivote:ratewindow:"}
}

func (w *RedisWindow) key(wallet id.WalletAddress) string {
	return w.prefix + wallet.String()
}

func (w *RedisWindow) Count(ctx context.Context, wallet id.WalletAddress) (int, error) {
	now := requestcontext.Now(ctx)
	cutoff := strconv.FormatInt(now.Add(-w.window).UnixNano(), 10)

	pipe := w.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, w.key(wallet), "0", cutoff)
	card := pipe.ZCard(ctx, w.key(wallet))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count rate window: %w", err)
	}
	return int(card.Val()), nil
}

func (w *RedisWindow) Record(ctx context.Context, wallet id.WalletAddress) error {
	now := requestcontext.Now(ctx)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := w.client.TxPipeline()
	pipe.ZAdd(ctx, w.key(wallet), redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, w.key(wallet), w.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record rate window: %w", err)
	}
	return nil
}
