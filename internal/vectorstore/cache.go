package vectorstore

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"

	"github.com/rcliao/frontdesk/internal/logger"
	"github.com/rcliao/frontdesk/internal/model"
)

// CachedLoader keeps loaded stores in memory so each turn does not re-read
// the blob. Entries expire after the TTL or when invalidated.
type CachedLoader struct {
	next  Loader
	cache *cache.Cache
	log   logger.ILogger
}

// NewCachedLoader wraps next. A zero ttl keeps entries until invalidated.
func NewCachedLoader(next Loader, ttl time.Duration, log logger.ILogger) *CachedLoader {
	if log == nil {
		log = logger.NewNop()
	}
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &CachedLoader{
		next:  next,
		cache: cache.New(expiration, cleanup),
		log:   log,
	}
}

func (c *CachedLoader) Load(ctx context.Context, name string) ([]model.EmbeddingRecord, error) {
	if v, ok := c.cache.Get(name); ok {
		return v.([]model.EmbeddingRecord), nil
	}
	records, err := c.next.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.Set(name, records, cache.DefaultExpiration)
	return records, nil
}

// Invalidate drops the cached copy of a store.
func (c *CachedLoader) Invalidate(name string) {
	c.cache.Delete(name)
}

// Watch invalidates stores whose <name>.json blob changes under dir until ctx
// is done. It returns once the watcher is registered.
func (c *CachedLoader) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".json" {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := strings.TrimSuffix(filepath.Base(event.Name), ".json")
				c.Invalidate(name)
				c.log.Info("vectorstore", "store invalidated", map[string]interface{}{
					"store": name,
					"op":    event.Op.String(),
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("vectorstore", "watch error", map[string]interface{}{"error": err.Error()})
			}
		}
	}()
	return nil
}
