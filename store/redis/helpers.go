package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// isNil returns true when err is the redis nil-reply sentinel.
func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
