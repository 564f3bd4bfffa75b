package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/proxy"
	"github.com/RecoveryAshes/webharvest/internal/useragent"
	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// identity 单次抓取尝试使用的出口身份
type identity struct {
	proxy     *proxy.Proxy
	userAgent string
	cookies   []models.Cookie
}

// fetchFunc 执行一次完整的导航与提取
type fetchFunc func(ctx context.Context, target string, ident identity) (*models.ScrapedPage, error)

// Scraper 页面抓取引擎
//
// 职责:
//   - 通过受控的无头浏览器会话抓取单个URL并返回结构化结果
//   - 每次尝试从代理池和UA池获取出口身份,并回报使用结果
//   - 指数退避重试,按URL做TTL缓存
//
// 并发安全: 浏览器会话内部加锁,可被多个goroutine共享
type Scraper struct {
	cfg     models.ScrapeConfig
	proxies *proxy.Manager
	agents  *useragent.Rotator
	cache   *resultCache
	session *browserSession
	monitor *ResourceMonitor

	// 可替换的抓取实现,测试时注入桩
	fetch fetchFunc
}

// New 创建抓取引擎
// proxies可为nil(直连),agents为nil时使用内置UA池
func New(cfg models.ScrapeConfig, proxies *proxy.Manager, agents *useragent.Rotator) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("抓取配置无效: %w", err)
	}
	if agents == nil {
		agents = useragent.NewRotator()
	}

	s := &Scraper{
		cfg:     cfg,
		proxies: proxies,
		agents:  agents,
		cache:   newResultCache(cfg.CacheTTL),
		session: newBrowserSession(cfg.Headless),
		monitor: NewResourceMonitor(DefaultResourceMonitorConfig()),
	}
	s.fetch = s.fetchWithBrowser
	return s, nil
}

// Scrape 抓取单个URL
// 缓存命中时直接返回,否则在指数退避下重试,重试耗尽后返回最后一次错误
func (s *Scraper) Scrape(ctx context.Context, target string) (*models.ScrapedPage, error) {
	if err := models.ValidateURL(target); err != nil {
		return nil, fmt.Errorf("目标URL无效: %w", err)
	}

	if s.cfg.CacheEnabled {
		if page, ok := s.cache.Get(target); ok {
			utils.Debugf("缓存命中: %s", target)
			return page, nil
		}
	}

	var lastErr error
	attempts := s.cfg.Retries + 1
	delay := s.cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		ident := s.pickIdentity()

		page, err := s.fetch(ctx, target, ident)
		if err == nil {
			s.reportProxy(ident.proxy, true)
			if s.cfg.CacheEnabled {
				s.cache.Put(target, page)
			}
			return page, nil
		}

		s.reportProxy(ident.proxy, false)
		lastErr = err
		utils.Warnf("抓取失败 [%s] (尝试 %d/%d, 剩余重试 %d): %v",
			target, attempt, attempts, attempts-attempt, err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("抓取 %s 失败,已耗尽 %d 次尝试: %w", target, attempts, lastErr)
}

// pickIdentity 为一次尝试选取代理和UA
// 配置中的显式值优先,否则代理走时间窗轮换,UA全池随机
func (s *Scraper) pickIdentity() identity {
	ident := identity{cookies: s.cfg.Cookies}

	if s.cfg.Proxy != "" {
		p, err := proxy.ParseConnectionString(s.cfg.Proxy)
		if err != nil {
			utils.Warnf("显式代理连接串无效,忽略: %v", err)
		} else {
			ident.proxy = p
		}
	} else if s.proxies != nil {
		ident.proxy = s.proxies.GetNext()
	}

	if s.cfg.UserAgent != "" {
		ident.userAgent = s.cfg.UserAgent
	} else {
		ident.userAgent = s.agents.GetRandom().Value
	}
	return ident
}

// reportProxy 回报代理使用结果
func (s *Scraper) reportProxy(p *proxy.Proxy, success bool) {
	if p == nil || s.proxies == nil {
		return
	}
	if success {
		s.proxies.MarkSuccess(p.Host, p.Port)
	} else {
		s.proxies.MarkError(p.Host, p.Port)
	}
}

// BatchResult 批量抓取中单个URL的结果
// 失败的URL记录错误而不中断同批次的其他URL
type BatchResult struct {
	URL  string
	Page *models.ScrapedPage
	Err  error
}

// ScrapeMultiple 批量抓取
// 按并发上限分批,批内并发执行,单个URL的失败只产生错误条目
// 实际并发取配置上限与资源监控推算值中的较小者
func (s *Scraper) ScrapeMultiple(ctx context.Context, urls []string) []BatchResult {
	if len(urls) == 0 {
		return nil
	}

	batchSize := s.cfg.MaxConcurrency
	if maxTabs := s.monitor.CalculateMaxTabs(); maxTabs < batchSize {
		utils.Debugf("资源受限,批量并发从 %d 降到 %d", batchSize, maxTabs)
		batchSize = maxTabs
	}

	results := make([]BatchResult, len(urls))
	for start := 0; start < len(urls); start += batchSize {
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}

		done := make(chan struct{})
		for i := start; i < end; i++ {
			go func(idx int) {
				defer func() { done <- struct{}{} }()
				page, err := s.Scrape(ctx, urls[idx])
				results[idx] = BatchResult{URL: urls[idx], Page: page, Err: err}
			}(i)
		}
		for i := start; i < end; i++ {
			<-done
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	utils.Infof("批量抓取完成: %d/%d 成功", succeeded, len(urls))
	return results
}

// ClearCache 清空结果缓存
func (s *Scraper) ClearCache() {
	s.cache.Clear()
}

// Close 关闭浏览器会话,所有退出路径都应调用
func (s *Scraper) Close() {
	s.session.Close()
}
