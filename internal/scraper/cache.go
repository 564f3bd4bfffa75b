package scraper

import (
	"sync"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// cacheEntry 带过期时间的缓存条目
type cacheEntry struct {
	page      *models.ScrapedPage
	expiresAt time.Time
}

// resultCache 按URL缓存抓取结果的TTL缓存
// 过期条目在读取时惰性清除,不做后台清理
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get 查询未过期的缓存结果,返回副本并标记FromCache
func (c *resultCache) Get(url string) (*models.ScrapedPage, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, url)
		c.mu.Unlock()
		utils.Debugf("缓存已过期: %s", url)
		return nil, false
	}

	copied := *entry.page
	copied.FromCache = true
	return &copied, true
}

// Put 写入缓存
func (c *resultCache) Put(url string, page *models.ScrapedPage) {
	copied := *page
	c.mu.Lock()
	c.entries[url] = cacheEntry{
		page:      &copied,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Clear 清空缓存
func (c *resultCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Size 当前条目数(含未清理的过期条目)
func (c *resultCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
