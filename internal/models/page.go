package models

import (
	"net/http"
	"time"
)

// Page 爬取单个URL的产出结果
// 由Crawler独占构建,创建后不可变,交给分块/存储环节消费
type Page struct {
	ID        string    `json:"id"`         // 唯一ID (UUID)
	URL       string    `json:"url"`        // 规范化后的来源URL
	Title     string    `json:"title"`      // 页面标题
	Content   string    `json:"content"`    // 提取的纯文本内容
	Links     []string  `json:"links"`      // 同域出站链接(规范化)
	Depth     int       `json:"depth"`      // 发现深度(种子为0)
	FetchedAt time.Time `json:"fetched_at"` // 抓取时间
}

// Chunk 页面文本的连续切片,附带嵌入所需的元数据
type Chunk struct {
	ID          string `json:"id"`           // 唯一ID (UUID)
	PageID      string `json:"page_id"`      // 来源页面ID
	URL         string `json:"url"`          // 来源页面URL
	Title       string `json:"title"`        // 来源页面标题
	Text        string `json:"text"`         // 切片文本
	Index       int    `json:"index"`        // 切片序号(从0开始)
	TotalChunks int    `json:"total_chunks"` // 该页面的切片总数
}

// Cookie 浏览器Cookie的精简表示
// 避免在模型层暴露CDP协议类型
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ScrapedPage 单次页面抓取的结构化结果
type ScrapedPage struct {
	URL        string        `json:"url"`         // 实际抓取的URL
	StatusCode int           `json:"status_code"` // 最终HTTP状态码
	Title      string        `json:"title"`       // 页面标题
	HTML       string        `json:"html"`        // 完整HTML
	Links      []string      `json:"links"`       // 页面上所有绝对http(s)链接
	Headers    http.Header   `json:"-"`           // 响应头部
	Cookies    []Cookie      `json:"cookies,omitempty"`
	FromCache  bool          `json:"from_cache"` // 是否命中缓存
	Duration   time.Duration `json:"duration"`   // 抓取耗时
	FetchedAt  time.Time     `json:"fetched_at"`
}

// CrawlStats 一次爬取调用的聚合统计
type CrawlStats struct {
	PagesProcessed int     `json:"pages_processed"` // 成功产出的页面数
	PagesFailed    int     `json:"pages_failed"`    // 抓取失败的页面数
	PagesSkipped   int     `json:"pages_skipped"`   // 内容过短/重复被跳过的页面数
	LinksSeen      int     `json:"links_seen"`      // 发现的链接总数
	ChunksStored   int     `json:"chunks_stored"`   // 已写入存储的切片数
	Duration       float64 `json:"duration"`        // 总耗时(秒)
}
