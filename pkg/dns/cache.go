package dns

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// DNSCache 缓存完整的DNS响应消息
type DNSCache struct {
	mu         sync.RWMutex
	cache      map[string]*cacheEntry
	defaultTTL time.Duration
}

// cacheEntry 表示缓存中的一条响应
type cacheEntry struct {
	msg      *dns.Msg
	expireAt time.Time
}

// NewDNSCache 创建新的DNS缓存
func NewDNSCache(defaultTTL int) *DNSCache {
	return &DNSCache{
		cache:      make(map[string]*cacheEntry),
		defaultTTL: time.Duration(defaultTTL) * time.Second,
	}
}

// Get 从缓存获取DNS响应，未命中或已过期时返回nil
func (c *DNSCache) Get(key string) *dns.Msg {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.cache[key]
	if !found {
		return nil
	}

	if time.Now().After(entry.expireAt) {
		// 异步清理过期记录
		go c.deleteExpired(key)
		return nil
	}

	// 返回副本避免调用方修改缓存内容
	return entry.msg.Copy()
}

// Set 使用默认TTL设置缓存
func (c *DNSCache) Set(key string, msg *dns.Msg) {
	c.SetWithTTL(key, msg, c.defaultTTL)
}

// SetWithTTL 使用指定TTL设置缓存
func (c *DNSCache) SetWithTTL(key string, msg *dns.Msg, ttl time.Duration) {
	if msg == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &cacheEntry{
		msg:      msg.Copy(),
		expireAt: time.Now().Add(ttl),
	}
}

// Delete 从缓存删除记录
func (c *DNSCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, key)
}

// InvalidateService 删除某个服务在指定域下的全部缓存响应
// 服务注册信息变化时调用，保证后续查询回源到注册表
func (c *DNSCache) InvalidateService(service, domain string) {
	fqdn := strings.ToLower(service + "." + domain + ".")
	srvName := strings.ToLower("_" + service + "._tcp." + domain + ".")

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeCNAME} {
		delete(c.cache, fqdn+"-"+dns.TypeToString[qtype])
	}
	delete(c.cache, srvName+"-"+dns.TypeToString[dns.TypeSRV])
}

// deleteExpired 删除已过期的记录
func (c *DNSCache) deleteExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 再次检查是否过期（可能在获取锁的过程中已被更新）
	entry, found := c.cache[key]
	if found && time.Now().After(entry.expireAt) {
		delete(c.cache, key)
	}
}

// CleanupExpired 清理所有过期缓存
func (c *DNSCache) CleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.cache {
		if now.After(entry.expireAt) {
			delete(c.cache, key)
		}
	}
}

// GetCacheKey 生成缓存键，域名统一转为小写
func GetCacheKey(q dns.Question) string {
	return strings.ToLower(q.Name) + "-" + dns.TypeToString[q.Qtype]
}

// StartCleanupRoutine 启动定期清理过期缓存的协程，ctx取消后退出
func (c *DNSCache) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CleanupExpired()
			}
		}
	}()
}
