package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"ChatSync/tools/errs"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var (
	rdb *goredis.Client
	ctx = context.Background()
)

func InitRedis(c Config) error {
	rdb = goredis.NewClient(&goredis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	return errs.Wrap(rdb.Ping(ctx).Err())
}

// Enabled reports whether the redis mirror is configured; every caller
// must tolerate it being off (single-node deployments).
func Enabled() bool { return rdb != nil }
