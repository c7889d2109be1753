package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	rediscli "NewsWire/service/storage/redis"
)

var (
	rdb *goredis.Client
	ctx = context.Background()
)

// Init wires this package to the shared redis client. Call after
// redis.InitRedis.
func Init() error {
	rdb = rediscli.GetRedis()
	return nil
}

// presence key: im:presence:<user>
// value: gateway ID; the TTL bounds how long a crashed gateway can leave a
// user looking online.
func presenceKey(user string) string { return "im:presence:" + user }

func PresenceOnline(user, gatewayID string, ttl time.Duration) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

func PresenceRenew(user, gatewayID string, ttl time.Duration) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	// SET with TTL rather than EXPIRE so a lost key is recreated.
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

func PresenceOffline(user string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports which gateway a user is attached to, if any.
func PresenceLookup(user string) (gatewayID string, online bool, err error) {
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Mirror adapts the package-level presence ops to the chat.PresenceMirror
// interface so the transport can be wired without importing redis types.
type Mirror struct{}

func (Mirror) Online(user, gatewayID string, ttl time.Duration) error {
	return PresenceOnline(user, gatewayID, ttl)
}

func (Mirror) Renew(user, gatewayID string, ttl time.Duration) error {
	return PresenceRenew(user, gatewayID, ttl)
}

func (Mirror) Offline(user string) error {
	return PresenceOffline(user)
}
