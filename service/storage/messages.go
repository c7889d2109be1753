package storage

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Conversation recent log: Redis Streams, bounded.

// DMKey is symmetric: both directions of a conversation share one stream.
func DMKey(a, b string) string {
	p := []string{a, b}
	sort.Strings(p)
	return fmt.Sprintf("im:dm:%s:%s", p[0], p[1])
}

// AppendRecent records a delivered envelope for reconnect backfill. The
// stream is trimmed approximately so it never grows unbounded.
func AppendRecent(senderID, receiverID string, payload []byte) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	args := &goredis.XAddArgs{
		Stream: DMKey(senderID, receiverID),
		Values: map[string]any{"payload": payload},
		Approx: true,
		MaxLen: 10_000,
	}
	return rdb.XAdd(ctx, args).Err()
}

// RecentLog adapts AppendRecent to the chat.RecentLog interface.
type RecentLog struct{}

func (RecentLog) Append(senderID, receiverID string, payload []byte) error {
	return AppendRecent(senderID, receiverID, payload)
}

// Unread counters for the transitional polling surface.

func unreadKey(user string) string { return "im:unread:" + user }

func UnreadIncr(user string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Incr(ctx, unreadKey(user)).Err()
}

func UnreadCount(user string) (int64, error) {
	if rdb == nil {
		return 0, errors.New("redis not initialized")
	}
	n, err := rdb.Get(ctx, unreadKey(user)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return n, err
}

// UnreadReset clears the counter, typically when the user reconnects and the
// CRUD layer serves the backlog.
func UnreadReset(user string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Del(ctx, unreadKey(user)).Err()
}

// Unread adapts the counter to the chat.UnreadCounter interface.
type Unread struct{}

func (Unread) Incr(user string) error { return UnreadIncr(user) }
