package scraper

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/proxy"
	"github.com/RecoveryAshes/webharvest/internal/useragent"
	"github.com/RecoveryAshes/webharvest/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// StaticScraper 无浏览器的静态抓取器
//
// 职责:
//   - 对不需要JS渲染的站点做纯HTTP抓取,开销远低于浏览器路径
//   - 与浏览器抓取返回同样的结构化结果,调用方可互换使用
//   - 支持代理、UA轮换与brotli/gzip/deflate解压
type StaticScraper struct {
	cfg     models.ScrapeConfig
	proxies *proxy.Manager
	agents  *useragent.Rotator
	cache   *resultCache
}

// NewStatic 创建静态抓取器
func NewStatic(cfg models.ScrapeConfig, proxies *proxy.Manager, agents *useragent.Rotator) (*StaticScraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("抓取配置无效: %w", err)
	}
	if agents == nil {
		agents = useragent.NewRotator()
	}
	return &StaticScraper{
		cfg:     cfg,
		proxies: proxies,
		agents:  agents,
		cache:   newResultCache(cfg.CacheTTL),
	}, nil
}

// Scrape 抓取单个URL
// 与浏览器路径共享缓存语义和指数退避重试策略
func (s *StaticScraper) Scrape(ctx context.Context, target string) (*models.ScrapedPage, error) {
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
		var p *proxy.Proxy
		if s.proxies != nil {
			p = s.proxies.GetNext()
		}

		page, err := s.fetchOnce(ctx, target, p)
		if err == nil {
			if p != nil {
				s.proxies.MarkSuccess(p.Host, p.Port)
			}
			if s.cfg.CacheEnabled {
				s.cache.Put(target, page)
			}
			return page, nil
		}

		if p != nil {
			s.proxies.MarkError(p.Host, p.Port)
		}
		lastErr = err
		utils.Warnf("静态抓取失败 [%s] (尝试 %d/%d): %v", target, attempt, attempts, err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("静态抓取 %s 失败,已耗尽 %d 次尝试: %w", target, attempts, lastErr)
}

// fetchOnce 执行一次colly抓取
func (s *StaticScraper) fetchOnce(ctx context.Context, target string, p *proxy.Proxy) (*models.ScrapedPage, error) {
	start := time.Now()

	c := colly.NewCollector(colly.StdlibContext(ctx))
	c.SetClient(&http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Timeout: s.cfg.Timeout,
	})
	c.SetRequestTimeout(s.cfg.Timeout)

	if s.cfg.UserAgent != "" {
		c.UserAgent = s.cfg.UserAgent
	} else {
		c.UserAgent = s.agents.GetRandom().Value
	}

	if p != nil {
		if err := c.SetProxy(p.ConnectionString()); err != nil {
			return nil, fmt.Errorf("设置代理失败: %w", err)
		}
	}

	result := &models.ScrapedPage{URL: target}
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", target, encoding, err)
			} else {
				body = decompressed
			}
		}

		result.StatusCode = r.StatusCode
		result.HTML = string(body)
		result.Headers = r.Headers.Clone()
		s.parseHTML(result, target)
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("请求失败: %w", err)
	})

	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("发起请求失败: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if result.StatusCode == 0 {
		return nil, fmt.Errorf("未收到响应")
	}

	result.Duration = time.Since(start)
	result.FetchedAt = time.Now()
	return result, nil
}

// parseHTML 从响应体解析标题和绝对http(s)链接
func (s *StaticScraper) parseHTML(result *models.ScrapedPage, target string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		utils.Warnf("解析HTML失败 [%s]: %v", target, err)
		return
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs := resolveURL(target, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		result.Links = append(result.Links, abs)
	})
}

// ClearCache 清空结果缓存
func (s *StaticScraper) ClearCache() {
	s.cache.Clear()
}

// decompressResponse 根据Content-Encoding解压响应体
// 支持 gzip, deflate, br (Brotli)
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		return io.ReadAll(reader)

	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))

	case "", "identity":
		return body, nil

	default:
		return nil, fmt.Errorf("不支持的压缩格式: %s", encoding)
	}
}
