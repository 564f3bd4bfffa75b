package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/RecoveryAshes/webharvest/internal/models"
)

// stubFetcher 用内存页面表代替真实抓取
type stubFetcher struct {
	pages map[string]*models.ScrapedPage
	fails map[string]error
	calls []string
}

func (f *stubFetcher) Scrape(_ context.Context, target string) (*models.ScrapedPage, error) {
	f.calls = append(f.calls, target)
	if err, ok := f.fails[target]; ok {
		return nil, err
	}
	page, ok := f.pages[target]
	if !ok {
		return nil, fmt.Errorf("页面不存在: %s", target)
	}
	return page, nil
}

func fixturePage(title, body string, links ...string) *models.ScrapedPage {
	return &models.ScrapedPage{
		StatusCode: 200,
		Title:      title,
		HTML: fmt.Sprintf("<html><head><title>%s</title></head><body><p>%s</p></body></html>",
			title, body),
		Links: links,
	}
}

func longBody(seed string) string {
	return strings.Repeat(seed+" 内容段落 ", 30)
}

// 固定站点: 首页带2个站内链接和1个站外链接
func fixtureSite() *stubFetcher {
	return &stubFetcher{
		pages: map[string]*models.ScrapedPage{
			"https://example.test": fixturePage("首页", longBody("home"),
				"https://example.test/a",
				"https://example.test/b/",
				"https://external.example.org/x"),
			"https://example.test/a": fixturePage("页面A", longBody("alpha")),
			"https://example.test/b": fixturePage("页面B", longBody("bravo")),
		},
		fails: map[string]error{},
	}
}

func TestCrawlSmallSite(t *testing.T) {
	cfg := models.DefaultCrawlConfig()
	cfg.MaxPages = 3
	cfg.MaxDepth = 1

	fetcher := fixtureSite()
	c, err := New(cfg, fetcher)
	if err != nil {
		t.Fatal(err)
	}

	pages, stats, err := c.Crawl(context.Background(), "https://example.test/")
	if err != nil {
		t.Fatal(err)
	}

	if len(pages) != 3 {
		t.Fatalf("应收录3个页面, 实际 %d", len(pages))
	}
	if stats.PagesProcessed != 3 {
		t.Errorf("统计应记录3个页面, 实际 %d", stats.PagesProcessed)
	}
	for _, p := range pages {
		if p.Depth > 1 {
			t.Errorf("页面深度不应超过1: %s 深度=%d", p.URL, p.Depth)
		}
		if strings.Contains(p.URL, "external") {
			t.Errorf("站外链接不应被收录: %s", p.URL)
		}
	}
	for _, call := range fetcher.calls {
		if strings.Contains(call, "external") {
			t.Errorf("站外链接不应被抓取: %s", call)
		}
	}
	// 末尾斜杠变体规范化为同一页面
	if pages[2].URL != "https://example.test/b" {
		t.Errorf("链接应规范化(去末尾斜杠), 实际 %s", pages[2].URL)
	}
}

func TestCrawlDeterministicOrder(t *testing.T) {
	cfg := models.DefaultCrawlConfig()
	cfg.MaxPages = 3
	cfg.MaxDepth = 1

	var orders [][]string
	for i := 0; i < 2; i++ {
		c, err := New(cfg, fixtureSite())
		if err != nil {
			t.Fatal(err)
		}
		pages, _, err := c.Crawl(context.Background(), "https://example.test")
		if err != nil {
			t.Fatal(err)
		}
		order := make([]string, len(pages))
		for j, p := range pages {
			order[j] = p.URL
		}
		orders = append(orders, order)
	}

	if strings.Join(orders[0], ",") != strings.Join(orders[1], ",") {
		t.Errorf("同一种子的遍历顺序应确定: %v vs %v", orders[0], orders[1])
	}
}

func TestCrawlPageBudget(t *testing.T) {
	cfg := models.DefaultCrawlConfig()
	cfg.MaxPages = 2
	cfg.MaxDepth = 1

	c, err := New(cfg, fixtureSite())
	if err != nil {
		t.Fatal(err)
	}
	pages, stats, err := c.Crawl(context.Background(), "https://example.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 || stats.PagesProcessed != 2 {
		t.Errorf("页面预算应被严格遵守: 收录 %d", len(pages))
	}
}

func TestCrawlAbsorbsPageFailure(t *testing.T) {
	cfg := models.DefaultCrawlConfig()
	cfg.MaxPages = 3
	cfg.MaxDepth = 1

	fetcher := fixtureSite()
	fetcher.fails["https://example.test/a"] = errors.New("导航超时")

	c, err := New(cfg, fetcher)
	if err != nil {
		t.Fatal(err)
	}
	pages, stats, err := c.Crawl(context.Background(), "https://example.test")
	if err != nil {
		t.Fatalf("单页失败不应导致整体失败: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("失败页之外的页面应被收录, 实际 %d", len(pages))
	}
	if stats.PagesFailed != 1 {
		t.Errorf("应记录1个失败页面, 实际 %d", stats.PagesFailed)
	}
}

func TestCrawlSkipsShortContent(t *testing.T) {
	cfg := models.DefaultCrawlConfig()
	cfg.MaxPages = 3
	cfg.MaxDepth = 1

	fetcher := fixtureSite()
	fetcher.pages["https://example.test/a"] = fixturePage("页面A", "太短")

	c, err := New(cfg, fetcher)
	if err != nil {
		t.Fatal(err)
	}
	pages, stats, err := c.Crawl(context.Background(), "https://example.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Errorf("内容过短的页面不应被收录, 实际收录 %d", len(pages))
	}
	if stats.PagesSkipped != 1 {
		t.Errorf("应记录1个跳过页面, 实际 %d", stats.PagesSkipped)
	}
}

func TestCrawlSkipsDuplicateContent(t *testing.T) {
	cfg := models.DefaultCrawlConfig()
	cfg.MaxPages = 3
	cfg.MaxDepth = 1

	fetcher := fixtureSite()
	// 页面B与页面A内容完全相同
	fetcher.pages["https://example.test/b"] = fetcher.pages["https://example.test/a"]

	c, err := New(cfg, fetcher)
	if err != nil {
		t.Fatal(err)
	}
	pages, stats, err := c.Crawl(context.Background(), "https://example.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Errorf("重复内容的页面不应被收录, 实际收录 %d", len(pages))
	}
	if stats.PagesSkipped != 1 {
		t.Errorf("应记录1个跳过页面, 实际 %d", stats.PagesSkipped)
	}
}

func TestCrawlInvalidSeed(t *testing.T) {
	c, err := New(models.DefaultCrawlConfig(), fixtureSite())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Crawl(context.Background(), "ftp://example.test"); err == nil {
		t.Error("无法规范化的种子URL应返回错误")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"末尾斜杠", "https://example.com/foo/", "https://example.com/foo", false},
		{"片段", "https://example.com/foo#section", "https://example.com/foo", false},
		{"主机名小写", "https://EXAMPLE.com/Foo", "https://example.com/Foo", false},
		{"根路径", "https://example.com/", "https://example.com", false},
		{"相对地址", "/foo", "", true},
		{"非http协议", "ftp://example.com/foo", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/foo/",
		"https://EXAMPLE.com/a/b/#frag",
		"http://example.com",
	}
	for _, input := range inputs {
		once, err := Normalize(input)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("规范化应幂等: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestFrontierNeverDequeuesTwice(t *testing.T) {
	f := NewFrontier()
	if !f.Push("https://example.com/a", 0) {
		t.Fatal("首次入队应成功")
	}
	if f.Push("https://example.com/a", 1) {
		t.Error("重复入队应被拒绝")
	}

	dequeued := make(map[string]int)
	f.Push("https://example.com/b", 1)
	for {
		url, _, ok := f.Pop()
		if !ok {
			break
		}
		dequeued[url]++
	}
	for url, count := range dequeued {
		if count != 1 {
			t.Errorf("URL %s 被出队 %d 次", url, count)
		}
	}
	if f.SeenCount() != 2 {
		t.Errorf("已见集合大小应等于去重入队数2, 实际 %d", f.SeenCount())
	}
}

func TestExtractContentStripsBoilerplate(t *testing.T) {
	html := `<html><head><title>t</title><script>var x=1;</script><style>.a{}</style></head>
<body>
<nav><p>导航菜单</p></nav>
<h1>标题文本</h1>
<p>正文第一段</p>
<ul><li>列表项一</li><li>列表项二</li></ul>
<footer><p>页脚版权</p></footer>
</body></html>`

	content := ExtractContent(html)
	for _, want := range []string{"标题文本", "正文第一段", "列表项一", "列表项二"} {
		if !strings.Contains(content, want) {
			t.Errorf("正文应包含 %q, 实际: %q", want, content)
		}
	}
	for _, banned := range []string{"导航菜单", "页脚版权", "var x=1"} {
		if strings.Contains(content, banned) {
			t.Errorf("正文不应包含样板内容 %q", banned)
		}
	}

	// 块顺序与文档一致
	if strings.Index(content, "标题文本") > strings.Index(content, "正文第一段") {
		t.Error("正文块应保持文档顺序")
	}
}

func TestJaccard(t *testing.T) {
	a := wordSet("the quick brown fox")
	b := wordSet("the quick brown dog")
	sim := jaccard(a, b)
	if sim < 0.59 || sim > 0.61 {
		t.Errorf("jaccard应为3/5=0.6, 实际 %f", sim)
	}
	if jaccard(a, a) != 1 {
		t.Error("自身相似度应为1")
	}
}
