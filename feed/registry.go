package feed

import (
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// Registry holds the live feed sessions. Sessions a client stopped
// talking to fall out after the TTL and get disposed exactly like an
// explicit delete would.
type Registry struct {
	cache *ttlcache.Cache
}

func NewRegistry(ttl time.Duration) *Registry {
	c := ttlcache.NewCache()
	c.SetTTL(ttl)
	c.SetExpirationCallback(func(key string, value interface{}) {
		if s, ok := value.(*Session); ok {
			s.Dispose()
		}
	})

	return &Registry{cache: c}
}

func (r *Registry) Add(s *Session) {
	r.cache.Set(s.ID, s)
}

func (r *Registry) Get(id string) (*Session, bool) {
	v, err := r.cache.Get(id)
	if err != nil {
		return nil, false
	}

	s, ok := v.(*Session)
	return s, ok
}

// Remove disposes the session and drops it from the registry.
func (r *Registry) Remove(id string) bool {
	s, ok := r.Get(id)
	if !ok {
		return false
	}

	s.Dispose()
	r.cache.Remove(id)
	return true
}

// Close releases the registry's timers.
func (r *Registry) Close() {
	r.cache.Close()
}
