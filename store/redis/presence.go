package redis

import (
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"ChatSync/tools/errs"
)

// Cross-node presence mirror. The in-process registry is the truth for
// local sockets; these keys only answer "is this user online anywhere".
//
// presence key: chat:presence:<user>
// value: node id; TTL bounds staleness after a crashed node.
func presenceKey(user string) string { return "chat:presence:" + user }

// PresenceOnline marks the user online on the given node and (re)arms TTL.
func PresenceOnline(user, nodeID string, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	return errs.Wrap(rdb.Set(ctx, presenceKey(user), nodeID, ttl).Err())
}

// PresenceRenew extends the TTL during heartbeat sweeps.
func PresenceRenew(user string, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	return errs.Wrap(rdb.Expire(ctx, presenceKey(user), ttl).Err())
}

// PresenceOffline deletes the key on the last disconnect.
func PresenceOffline(user string) error {
	if rdb == nil {
		return nil
	}
	return errs.Wrap(rdb.Del(ctx, presenceKey(user)).Err())
}

// PresenceLookup reports whether the user is online on any node.
func PresenceLookup(user string) (nodeID string, online bool, err error) {
	if rdb == nil {
		return "", false, nil
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Wrap(err)
	}
	return val, true, nil
}
