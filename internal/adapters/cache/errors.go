package cache

import "errors"

var ErrRedisUnavailable = errors.New("redis unavailable")
