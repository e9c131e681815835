package cache

import "errors"

// ErrCacheMiss is returned by typed helpers when a key has no entry.
var ErrCacheMiss = errors.New("cache miss")
