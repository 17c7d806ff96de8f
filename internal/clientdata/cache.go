package clientdata

import "time"

// Cache is the subset of Repository used by services that cache upstream
// responses. A nil Cache disables persistent caching.
type Cache interface {
	Store(table, key string, data interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, out interface{}) (bool, error)
	Get(table, key string, out interface{}) (bool, error)
}

var _ Cache = (*Repository)(nil)
