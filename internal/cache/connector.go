package cache

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"

	"questrail.io/questrail/internal/config"
	"questrail.io/questrail/pkg/log"
)

var (
	Redis       *redis.Client
	RateLimiter *redis_rate.Limiter
)

func Init(cred *config.DBCredential) {
	db, _ := strconv.ParseInt(cred.Database, 10, 64)
	Redis = redis.NewClient(&redis.Options{
		Addr: cred.GetRedisAddress(),
		DB:   int(db),
	})
	if _, err := Redis.Ping(context.TODO()).Result(); err != nil {
		log.Fatalf("ping to redis:%v", err)
	}
	RateLimiter = redis_rate.NewLimiter(Redis)
	log.Info("Connected to redis...")
}

func Close() {
	if Redis != nil {
		Redis.Close()
		Redis = nil
	}
}

// InboundAllowed rate limits chat events per conversation so one chat
// cannot starve the dispatcher.
func InboundAllowed(ctx context.Context, chatID int64) bool {
	if RateLimiter == nil {
		return true
	}
	res, err := RateLimiter.Allow(ctx, "inbound:"+strconv.FormatInt(chatID, 10), redis_rate.PerSecond(5))
	if err != nil {
		log.Errorf("inbound rate limit:%v", err)
		return true
	}
	return res.Allowed > 0
}
