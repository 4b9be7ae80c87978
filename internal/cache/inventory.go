package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	UserKeyPrefix         = "user:%d"
	UsernameKeyPrefix     = "user:name:%s"
	RevokedTokenKeyPrefix = "blacklist:%s"
)

const (
	UserTTL = 5 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// UsernameKey is case-sensitive, matching username uniqueness.
func UsernameKey(username string) string {
	return fmt.Sprintf(UsernameKeyPrefix, strings.TrimSpace(username))
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenKeyPrefix, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint, username string) {
	Invalidate(ctx, UserKey(userID), UsernameKey(username))
}
