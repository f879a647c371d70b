package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/codequeen-tgbot-go/internal/config"
	"github.com/codequeen-tgbot-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Service defines response cache operations.
type Service interface {
	Get(prompt string) (string, bool)
	Set(prompt, answer string)
	Clear()
}

// Cache stores cleaned inference responses keyed by a fingerprint of the
// rendered prompt.
type Cache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates a response cache service.
func NewCache(cfg *config.CacheConfig, logger *logrus.Logger) Service {
	if !cfg.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   cache.New(cfg.TTL, cfg.TTL*2),
		logger:  logger,
		maxSize: cfg.MaxSize,
	}
}

// Get retrieves a cached response for the given prompt.
func (c *Cache) Get(prompt string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	if val, found := c.cache.Get(Fingerprint(prompt)); found {
		entry := val.(*models.CacheEntry)
		c.logger.WithField("age", time.Since(entry.CreatedAt)).Debug("Cache hit")
		return entry.Answer, true
	}

	return "", false
}

// Set stores a response. Once the capacity bound is reached, expired
// entries are dropped first, then the oldest-inserted live entry.
func (c *Cache) Set(prompt, answer string) {
	if !c.enabled {
		return
	}

	if c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
		for c.cache.ItemCount() >= c.maxSize {
			c.evictOldest()
		}
	}

	c.cache.SetDefault(Fingerprint(prompt), &models.CacheEntry{
		Prompt:    prompt,
		Answer:    answer,
		CreatedAt: time.Now(),
	})
	c.logger.Debug("Response cached")
}

// Clear removes all cached entries.
func (c *Cache) Clear() {
	if !c.enabled {
		return
	}

	c.cache.Flush()
	c.logger.Info("Response cache cleared")
}

// evictOldest drops the entry closest to expiry. With a uniform TTL that
// is the oldest-inserted entry.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestExp int64

	for key, item := range c.cache.Items() {
		if oldestKey == "" || item.Expiration < oldestExp {
			oldestKey = key
			oldestExp = item.Expiration
		}
	}
	if oldestKey != "" {
		c.cache.Delete(oldestKey)
	}
}

// Fingerprint returns the deterministic cache key for a rendered prompt.
func Fingerprint(prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(hash[:])
}
