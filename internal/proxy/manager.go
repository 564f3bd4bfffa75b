package proxy

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// DefaultRotationInterval GetNext的默认轮换窗口
const DefaultRotationInterval = 5 * time.Minute

// Manager 代理池管理器
//
// 职责:
//   - 以host:port为键维护代理池,计数器更新全部串行化在内部锁中
//   - 提供时间窗轮换/随机/最优三种选取策略
//   - 根据滚动错误率维护每个代理的健康标记
//
// 对外返回的*Proxy均为快照副本,修改副本不影响池内状态
type Manager struct {
	mu               sync.Mutex
	proxies          map[string]*Proxy
	order            []string // 插入顺序,轮换与快照遍历都依赖它
	rotationInterval time.Duration
	currentIndex     int
	windowStart      time.Time
	rng              *rand.Rand
	redactor         *utils.Redactor
}

// NewManager 创建代理池管理器,轮换窗口使用默认5分钟
func NewManager() *Manager {
	return NewManagerWithInterval(DefaultRotationInterval)
}

// NewManagerWithInterval 创建指定轮换窗口的管理器
func NewManagerWithInterval(interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultRotationInterval
	}
	return &Manager{
		proxies:          make(map[string]*Proxy),
		rotationInterval: interval,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		redactor:         utils.NewRedactor(),
	}
}

// Add 添加单个代理,同一host:port重复添加时覆盖静态字段但保留计数器
func (m *Manager) Add(p *Proxy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(p)
}

// AddMany 批量添加代理
func (m *Manager) AddMany(proxies []*Proxy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range proxies {
		m.addLocked(p)
	}
	utils.Infof("代理池当前共 %d 个代理", len(m.order))
}

func (m *Manager) addLocked(p *Proxy) {
	if p == nil || p.Host == "" || p.Port <= 0 {
		return
	}
	key := p.Key()
	if existing, ok := m.proxies[key]; ok {
		// 保留运行计数,只更新静态属性
		existing.Protocol = p.Protocol
		existing.Username = p.Username
		existing.Password = p.Password
		existing.Country = p.Country
		existing.Tags = p.Tags
		return
	}
	stored := p.clone()
	if stored.Attempts() == 0 {
		// 新代理在首次失败证据出现前默认可用
		stored.IsWorking = true
	}
	m.proxies[key] = stored
	m.order = append(m.order, key)
	utils.Debugf("添加代理: %s", m.redactor.RedactProxyURL(p.ConnectionString()))
}

// RemoveOne 按host:port移除代理
// 返回是否实际移除了条目
func (m *Manager) RemoveOne(host string, port int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := (&Proxy{Host: host, Port: port}).Key()
	if _, ok := m.proxies[key]; !ok {
		return false
	}
	delete(m.proxies, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			if m.currentIndex >= len(m.order) && len(m.order) > 0 {
				m.currentIndex = m.currentIndex % len(m.order)
			}
			break
		}
	}
	utils.Infof("移除代理: %s", key)
	return true
}

// GetNext 时间窗轮换选取
// 同一个窗口内(默认5分钟)始终返回同一个代理,窗口到期后前进到下一个
// 池为空时返回nil
func (m *Manager) GetNext() *Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return nil
	}

	now := time.Now()
	if m.windowStart.IsZero() {
		m.windowStart = now
	} else if now.Sub(m.windowStart) >= m.rotationInterval {
		m.currentIndex = (m.currentIndex + 1) % len(m.order)
		m.windowStart = now
		utils.Debugf("代理轮换窗口到期,切换到 #%d", m.currentIndex)
	}

	if m.currentIndex >= len(m.order) {
		m.currentIndex = 0
	}
	p := m.proxies[m.order[m.currentIndex]]
	p.LastUsed = now
	return p.clone()
}

// GetRandom 全池均匀随机选取,与轮换窗口无关
// 池为空时返回nil
func (m *Manager) GetRandom() *Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.randomLocked()
}

func (m *Manager) randomLocked() *Proxy {
	if len(m.order) == 0 {
		return nil
	}
	p := m.proxies[m.order[m.rng.Intn(len(m.order))]]
	p.LastUsed = time.Now()
	return p.clone()
}

// GetBest 选取成功率最高的健康代理
// 候选条件: 使用次数>=5 且 成功率>=minSuccessRate 且 健康标记为true
// 无候选时退回随机选取
func (m *Manager) GetBest(minSuccessRate float64) *Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]*Proxy, 0, len(m.order))
	for _, key := range m.order {
		p := m.proxies[key]
		if p.Attempts() >= healthMinAttempts && p.SuccessRate() >= minSuccessRate && p.IsWorking {
			candidates = append(candidates, p)
		}
	}

	if len(candidates) == 0 {
		utils.Debug("没有满足健康阈值的代理,退回随机选取")
		return m.randomLocked()
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].SuccessRate() > candidates[j].SuccessRate()
	})
	best := candidates[0]
	best.LastUsed = time.Now()
	return best.clone()
}

// MarkSuccess 记录一次成功使用
// 任何一次成功都会把健康标记置回true
func (m *Manager) MarkSuccess(host string, port int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := (&Proxy{Host: host, Port: port}).Key()
	p, ok := m.proxies[key]
	if !ok {
		return
	}
	p.SuccessCount++
	p.IsWorking = true
	p.LastTested = time.Now()
}

// MarkError 记录一次失败使用
// 使用次数达到5次且错误率超过70%时标记为不可用
func (m *Manager) MarkError(host string, port int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := (&Proxy{Host: host, Port: port}).Key()
	p, ok := m.proxies[key]
	if !ok {
		return
	}
	p.ErrorCount++
	p.LastTested = time.Now()

	attempts := p.Attempts()
	errorRate := float64(p.ErrorCount) / float64(attempts)
	if attempts >= healthMinAttempts && errorRate > healthErrorRateHigh {
		if p.IsWorking {
			utils.Warnf("代理 %s 错误率 %.0f%% (共%d次),标记为不可用", key, errorRate*100, attempts)
		}
		p.IsWorking = false
	}
}

// ByCountry 按国家码过滤,返回快照列表
func (m *Manager) ByCountry(country string) []*Proxy {
	return m.filter(func(p *Proxy) bool {
		return strings.EqualFold(p.Country, country)
	})
}

// ByTag 按标签过滤,返回快照列表
func (m *Manager) ByTag(tag string) []*Proxy {
	return m.filter(func(p *Proxy) bool {
		for _, t := range p.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	})
}

// All 返回全部代理的快照,按插入顺序
func (m *Manager) All() []*Proxy {
	return m.filter(func(*Proxy) bool { return true })
}

func (m *Manager) filter(match func(*Proxy) bool) []*Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*Proxy, 0, len(m.order))
	for _, key := range m.order {
		if p := m.proxies[key]; match(p) {
			result = append(result, p.clone())
		}
	}
	return result
}

// Size 返回池大小
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
