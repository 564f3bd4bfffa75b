package crawler

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// defaultExcludePatterns 默认排除规则: 二进制文件扩展名和带查询串的URL
var defaultExcludePatterns = []string{
	`\.(png|jpe?g|gif|webp|svg|ico|css|js|json|xml|pdf|zip|tar|gz|rar|7z|mp3|mp4|avi|mov|woff2?|ttf|eot|exe|dmg|iso)$`,
	`\?`,
}

// Fetcher 页面抓取边界
// 浏览器抓取器和静态抓取器都满足该契约
type Fetcher interface {
	Scrape(ctx context.Context, target string) (*models.ScrapedPage, error)
}

// Crawler 站点遍历引擎
//
// 职责:
//   - 维护爬取边界(FIFO队列+已见集合),保证同一规范化URL只处理一次
//   - 执行域名/模式准入规则与深度/页数预算
//   - 逐页驱动Fetcher,产出规范化的页面记录
//
// 遍历是单goroutine顺序执行的: 同一时刻只有一个在途页面,
// 资源占用有界,且给定种子和规则时遍历顺序确定
type Crawler struct {
	cfg     models.CrawlConfig
	fetcher Fetcher
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// New 创建遍历引擎
// 未指定include模式时默认限定与种子同主机,在Crawl时注入
func New(cfg models.CrawlConfig, fetcher Fetcher) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("爬取配置无效: %w", err)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("缺少页面抓取器")
	}

	c := &Crawler{cfg: cfg, fetcher: fetcher}

	for _, pattern := range cfg.IncludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("include模式无效 %q: %w", pattern, err)
		}
		c.include = append(c.include, re)
	}

	excludePatterns := cfg.ExcludePatterns
	if len(excludePatterns) == 0 {
		excludePatterns = defaultExcludePatterns
	}
	for _, pattern := range excludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude模式无效 %q: %w", pattern, err)
		}
		c.exclude = append(c.exclude, re)
	}

	return c, nil
}

// Crawl 从种子URL开始遍历,返回按发现顺序排列的页面记录和聚合统计
// 单页失败只记录日志并继续,部分成功的遍历返回已收集的结果
// 种子URL本身无法规范化时返回错误
func (c *Crawler) Crawl(ctx context.Context, seedURL string) ([]*models.Page, models.CrawlStats, error) {
	start := time.Now()
	stats := models.CrawlStats{}

	seed, err := Normalize(seedURL)
	if err != nil {
		return nil, stats, fmt.Errorf("种子URL无效: %w", err)
	}

	include := c.include
	if len(include) == 0 {
		re, err := sameHostPattern(seed)
		if err != nil {
			return nil, stats, err
		}
		include = []*regexp.Regexp{re}
		utils.Debugf("未指定include模式,默认限定主机: %s", re.String())
	}

	utils.Infof("🕷️ 开始爬取: %s (页面预算=%d, 最大深度=%d)", seed, c.cfg.MaxPages, c.cfg.MaxDepth)

	frontier := NewFrontier()
	frontier.Push(seed, 0)
	dedupe := newDedupeIndex(c.cfg.DedupeThreshold)
	pages := make([]*models.Page, 0)

	for frontier.Pending() > 0 && len(pages) < c.cfg.MaxPages {
		select {
		case <-ctx.Done():
			utils.Warnf("爬取被取消,返回已收集的 %d 个页面", len(pages))
			stats.PagesProcessed = len(pages)
			stats.Duration = time.Since(start).Seconds()
			return pages, stats, nil
		default:
		}

		current, depth, _ := frontier.Pop()
		if depth > c.cfg.MaxDepth {
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
		scraped, err := c.fetcher.Scrape(fetchCtx, current)
		cancel()
		if err != nil {
			utils.Warnf("页面抓取失败,继续遍历 [%s]: %v", current, err)
			stats.PagesFailed++
			continue
		}

		stats.LinksSeen += len(scraped.Links)

		// 先入队出站链接,内容被拒收的页面仍然贡献链接
		sameScope := c.enqueueLinks(frontier, include, current, scraped.Links, depth)

		content := ExtractContent(scraped.HTML)
		if len(content) < c.cfg.MinContentLength {
			utils.Debugf("内容过短,不收录 [%s]: %d字符", current, len(content))
			stats.PagesSkipped++
			continue
		}
		if dedupe.IsDuplicate(content) {
			utils.Debugf("内容重复,不收录 [%s]", current)
			stats.PagesSkipped++
			continue
		}

		pages = append(pages, models.NewPage(current, scraped.Title, content, sameScope, depth))
		utils.Infof("收录页面 %d/%d: %s (深度=%d, 待爬=%d)",
			len(pages), c.cfg.MaxPages, current, depth, frontier.Pending())
	}

	stats.PagesProcessed = len(pages)
	stats.Duration = time.Since(start).Seconds()
	utils.Infof("✅ 爬取完成: 收录=%d 失败=%d 跳过=%d 发现链接=%d 耗时=%.2f秒",
		stats.PagesProcessed, stats.PagesFailed, stats.PagesSkipped, stats.LinksSeen, stats.Duration)
	return pages, stats, nil
}

// enqueueLinks 规范化并过滤出站链接,把准入的链接推进边界
// 返回规范化后的准入链接列表(含已见过的),作为页面记录的出站链接
func (c *Crawler) enqueueLinks(frontier *Frontier, include []*regexp.Regexp, pageURL string, links []string, depth int) []string {
	admitted := make([]string, 0)
	for _, link := range links {
		canonical, err := ResolveAndNormalize(pageURL, link)
		if err != nil {
			continue
		}
		if !c.isAllowed(canonical, include) {
			continue
		}
		admitted = append(admitted, canonical)

		if depth+1 > c.cfg.MaxDepth {
			continue
		}
		frontier.Push(canonical, depth+1)
	}
	return admitted
}

// isAllowed URL准入检查: 必须命中至少一个include模式,且不命中任何exclude模式
func (c *Crawler) isAllowed(canonical string, include []*regexp.Regexp) bool {
	matched := false
	for _, re := range include {
		if re.MatchString(canonical) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, re := range c.exclude {
		if re.MatchString(canonical) {
			return false
		}
	}
	return true
}

// sameHostPattern 构造匹配种子主机的默认include正则
func sameHostPattern(seed string) (*regexp.Regexp, error) {
	parsed, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("解析种子URL失败: %w", err)
	}
	re, err := regexp.Compile(`^https?://` + regexp.QuoteMeta(parsed.Host) + `(/|$)`)
	if err != nil {
		return nil, fmt.Errorf("构造主机模式失败: %w", err)
	}
	return re, nil
}
