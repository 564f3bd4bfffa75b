package useragent

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// Rotator User-Agent轮换器
//
// 职责:
//   - 维护UA池并支持随机选取
//   - 支持按分类/浏览器/操作系统过滤
//   - 过滤无命中时告警并退回全池随机,调用方永远能拿到UA
//
// 所有方法并发安全
// 选取类方法会修改rng和lastUsed,统一走写锁
type Rotator struct {
	mu       sync.RWMutex
	pool     []UserAgent
	rng      *rand.Rand
	lastUsed UserAgent
}

// NewRotator 创建使用内置UA池的轮换器
func NewRotator() *Rotator {
	return NewRotatorWithPool(DefaultPool())
}

// NewRotatorWithPool 使用指定UA池创建轮换器
// 空池会退回内置池,保证GetRandom永不失败
func NewRotatorWithPool(pool []UserAgent) *Rotator {
	if len(pool) == 0 {
		utils.Warn("UA池为空,退回内置UA池")
		pool = DefaultPool()
	}
	return &Rotator{
		pool: pool,
		rng:  rand.New(rand.NewSource(rand.Int63())),
	}
}

// GetRandom 从全池随机选取一条UA
func (r *Rotator) GetRandom() UserAgent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(r.pool[r.rng.Intn(len(r.pool))])
}

// GetByCategory 按分类(desktop/mobile)随机选取
// 无命中时告警并退回全池随机
func (r *Rotator) GetByCategory(category string) UserAgent {
	return r.pickFiltered("分类", category, func(ua UserAgent) bool {
		return strings.EqualFold(ua.Category, category)
	})
}

// GetByBrowser 按浏览器随机选取
func (r *Rotator) GetByBrowser(browser string) UserAgent {
	return r.pickFiltered("浏览器", browser, func(ua UserAgent) bool {
		return strings.EqualFold(ua.Browser, browser)
	})
}

// GetByOS 按操作系统随机选取
func (r *Rotator) GetByOS(os string) UserAgent {
	return r.pickFiltered("操作系统", os, func(ua UserAgent) bool {
		return strings.EqualFold(ua.OS, os)
	})
}

// pickFiltered 按条件过滤后随机选取,空结果退回全池
func (r *Rotator) pickFiltered(label, value string, match func(UserAgent) bool) UserAgent {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]UserAgent, 0, len(r.pool))
	for _, ua := range r.pool {
		if match(ua) {
			candidates = append(candidates, ua)
		}
	}

	if len(candidates) == 0 {
		utils.Warnf("没有匹配%s %q 的UA,退回全池随机", label, value)
		return r.record(r.pool[r.rng.Intn(len(r.pool))])
	}

	return r.record(candidates[r.rng.Intn(len(candidates))])
}

// record 记录最近一次选取结果,须持有写锁调用
func (r *Rotator) record(ua UserAgent) UserAgent {
	r.lastUsed = ua
	return ua
}

// LastUsed 最近一次选取的UA,尚未选取过时返回零值
func (r *Rotator) LastUsed() UserAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastUsed
}

// Add 向池中追加一条UA
func (r *Rotator) Add(ua UserAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool = append(r.pool, ua)
}

// All 返回当前UA池的快照
func (r *Rotator) All() []UserAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]UserAgent, len(r.pool))
	copy(snapshot, r.pool)
	return snapshot
}

// Size 返回池大小
func (r *Rotator) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pool)
}
