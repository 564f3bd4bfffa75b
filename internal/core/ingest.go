package core

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/chunker"
	"github.com/RecoveryAshes/webharvest/internal/crawler"
	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/proxy"
	"github.com/RecoveryAshes/webharvest/internal/scraper"
	"github.com/RecoveryAshes/webharvest/internal/storage"
	"github.com/RecoveryAshes/webharvest/internal/useragent"
	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// Ingestor 采集流水线: 爬取 -> 分块 -> 入库
// 职责:
//   - 按模式装配抓取器(浏览器渲染或纯HTTP)
//   - 把爬取产出的页面切片后写入存储
//   - 汇总统计并生成报告数据
type Ingestor struct {
	cfg     *Config
	store   storage.Store
	fetcher crawler.Fetcher
	closer  func()
}

// NewIngestor 创建采集流水线
// store由调用方注入,代理池可为nil(直连)
func NewIngestor(cfg *Config, store storage.Store, proxies *proxy.Manager) (*Ingestor, error) {
	agents := useragent.NewRotator()

	ing := &Ingestor{cfg: cfg, store: store}

	switch cfg.Mode {
	case ModeStatic:
		s, err := scraper.NewStatic(cfg.Scrape, proxies, agents)
		if err != nil {
			return nil, fmt.Errorf("创建静态抓取器失败: %w", err)
		}
		ing.fetcher = s
	case ModeBrowser:
		s, err := scraper.New(cfg.Scrape, proxies, agents)
		if err != nil {
			return nil, fmt.Errorf("创建浏览器抓取器失败: %w", err)
		}
		ing.fetcher = s
		ing.closer = s.Close
	default:
		return nil, fmt.Errorf("未知的抓取模式: %s", cfg.Mode)
	}

	return ing, nil
}

// Ingest 执行一次完整采集
func (ing *Ingestor) Ingest(ctx context.Context, seedURL string) (*models.IngestReport, error) {
	startTime := time.Now()

	recorder := &recordingFetcher{inner: ing.fetcher}
	cr, err := crawler.New(ing.cfg.Crawl, recorder)
	if err != nil {
		return nil, err
	}

	pages, stats, err := cr.Crawl(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	ck, err := chunker.New(ing.cfg.Chunk)
	if err != nil {
		return nil, err
	}

	pageInfos := make([]models.PageInfo, 0, len(pages))
	bar := utils.NewProgressBar(len(pages), "分块入库")
	for _, page := range pages {
		chunks := ck.ChunkPage(page)
		if err := ing.storeChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("写入存储失败 (%s): %w", page.URL, err)
		}
		stats.ChunksStored += len(chunks)

		pageInfos = append(pageInfos, models.PageInfo{
			URL:           page.URL,
			Title:         page.Title,
			Depth:         page.Depth,
			ContentLength: len(page.Content),
			Chunks:        len(chunks),
			FetchedAt:     page.FetchedAt,
		})
		_ = bar.Add(1)
	}

	stats.Duration = time.Since(startTime).Seconds()
	utils.Infof("✅ 采集完成: %d页 %d切片, 耗时 %.2f秒",
		stats.PagesProcessed, stats.ChunksStored, stats.Duration)

	return &models.IngestReport{
		SeedURL:     seedURL,
		Domain:      hostOf(seedURL),
		Mode:        ing.cfg.Mode,
		StartTime:   startTime,
		EndTime:     time.Now(),
		Stats:       stats,
		Pages:       pageInfos,
		FailedPages: recorder.failed,
		CrawlConfig: ing.cfg.Crawl,
		ChunkConfig: ing.cfg.Chunk,
	}, nil
}

// storeChunks 把页面切片转成存储文档并写入
func (ing *Ingestor) storeChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]storage.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, storage.Document{
			ID:   chunk.ID,
			Text: chunk.Text,
			Metadata: map[string]string{
				"url":          chunk.URL,
				"title":        chunk.Title,
				"chunk_index":  strconv.Itoa(chunk.Index),
				"total_chunks": strconv.Itoa(chunk.TotalChunks),
			},
		})
	}
	return ing.store.Upsert(ctx, docs)
}

// Close 释放抓取器资源(浏览器实例)
func (ing *Ingestor) Close() {
	if ing.closer != nil {
		ing.closer()
	}
}

// recordingFetcher 包装抓取器,记录失败的URL供报告使用
type recordingFetcher struct {
	inner  crawler.Fetcher
	failed []models.FailedPageInfo
}

func (f *recordingFetcher) Scrape(ctx context.Context, target string) (*models.ScrapedPage, error) {
	page, err := f.inner.Scrape(ctx, target)
	if err != nil {
		f.failed = append(f.failed, models.FailedPageInfo{
			URL:      target,
			ErrorMsg: err.Error(),
		})
	}
	return page, err
}

// hostOf 提取小写主机名,解析失败时返回unknown
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Hostname())
}
