package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/storage"
)

// stubFetcher 按URL返回预置页面,缺失的URL返回错误
type stubFetcher struct {
	pages map[string]*models.ScrapedPage
}

func (f *stubFetcher) Scrape(_ context.Context, target string) (*models.ScrapedPage, error) {
	page, ok := f.pages[target]
	if !ok {
		return nil, errors.New("连接被拒绝")
	}
	return page, nil
}

// paragraphs 生成若干段足够长且词汇各异的正文
func paragraphs(topic string, count int) string {
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		parts = append(parts, fmt.Sprintf("<p>%s section %d %s</p>",
			topic, i, strings.Repeat(topic+fmt.Sprint(i)+" ", 20)))
	}
	return strings.Join(parts, "\n")
}

func fixtureIngestor(store storage.Store) *Ingestor {
	cfg := &Config{
		Mode:   ModeStatic,
		Scrape: models.DefaultScrapeConfig(),
		Crawl:  models.DefaultCrawlConfig(),
		Chunk:  models.DefaultChunkConfig(),
		Queue:  models.DefaultQueueConfig(),
	}

	fetcher := &stubFetcher{pages: map[string]*models.ScrapedPage{
		"https://site.test": {
			URL:        "https://site.test",
			StatusCode: 200,
			Title:      "首页",
			HTML:       "<html><body>" + paragraphs("alpha", 4) + "</body></html>",
			Links:      []string{"https://site.test/a", "https://site.test/broken"},
		},
		"https://site.test/a": {
			URL:        "https://site.test/a",
			StatusCode: 200,
			Title:      "子页",
			HTML:       "<html><body>" + paragraphs("bravo", 4) + "</body></html>",
		},
	}}

	return &Ingestor{cfg: cfg, store: store, fetcher: fetcher}
}

func TestIngestPipeline(t *testing.T) {
	store := storage.NewMemoryStore()
	ing := fixtureIngestor(store)

	report, err := ing.Ingest(context.Background(), "https://site.test")
	if err != nil {
		t.Fatal(err)
	}

	if report.Stats.PagesProcessed != 2 {
		t.Errorf("应产出2个页面, 实际 %d", report.Stats.PagesProcessed)
	}
	if report.Stats.PagesFailed != 1 {
		t.Errorf("应有1个失败页面, 实际 %d", report.Stats.PagesFailed)
	}
	if report.Stats.ChunksStored == 0 {
		t.Fatal("应至少写入1个切片")
	}
	if store.Size() != report.Stats.ChunksStored {
		t.Errorf("存储文档数 %d 与统计 %d 不符", store.Size(), report.Stats.ChunksStored)
	}

	if report.Domain != "site.test" {
		t.Errorf("报告域名不符: %s", report.Domain)
	}
	if len(report.FailedPages) != 1 || report.FailedPages[0].URL != "https://site.test/broken" {
		t.Errorf("失败页面记录不符: %+v", report.FailedPages)
	}
	if report.FailedPages[0].ErrorMsg == "" {
		t.Error("失败页面应携带错误信息")
	}

	// 页面清单的切片数应与总数一致
	total := 0
	for _, info := range report.Pages {
		total += info.Chunks
	}
	if total != report.Stats.ChunksStored {
		t.Errorf("页面清单切片数 %d 与统计 %d 不符", total, report.Stats.ChunksStored)
	}
}

func TestIngestStoredChunksAreSearchable(t *testing.T) {
	store := storage.NewMemoryStore()
	ing := fixtureIngestor(store)

	if _, err := ing.Ingest(context.Background(), "https://site.test"); err != nil {
		t.Fatal(err)
	}

	hits, err := store.Search(context.Background(), "bravo", storage.SearchOptions{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("入库内容应可检索")
	}
	meta := hits[0].Metadata
	if meta["url"] != "https://site.test/a" {
		t.Errorf("切片元数据应指向来源页面, 实际 %v", meta)
	}
	if meta["chunk_index"] == "" || meta["total_chunks"] == "" {
		t.Errorf("切片元数据缺少序号信息: %v", meta)
	}
}

func TestIngestInvalidSeed(t *testing.T) {
	ing := fixtureIngestor(storage.NewMemoryStore())
	if _, err := ing.Ingest(context.Background(), "not-a-url"); err == nil {
		t.Error("无效种子应报错")
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("https://Example.com:8443/path"); got != "example.com" {
		t.Errorf("hostOf应返回小写主机名, 实际 %s", got)
	}
	if got := hostOf("::bad::"); got != "unknown" {
		t.Errorf("解析失败应返回unknown, 实际 %s", got)
	}
}
