package models

import "time"

// PageInfo 报告中的单页摘要
type PageInfo struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Depth         int       `json:"depth"`
	ContentLength int       `json:"content_length"`
	Chunks        int       `json:"chunks"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// FailedPageInfo 报告中的失败页面记录
type FailedPageInfo struct {
	URL      string `json:"url"`
	ErrorMsg string `json:"error_msg"`
}

// IngestReport 一次采集任务的完整报告
type IngestReport struct {
	SeedURL     string           `json:"seed_url"`
	Domain      string           `json:"domain"`
	Mode        string           `json:"mode"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Stats       CrawlStats       `json:"stats"`
	Pages       []PageInfo       `json:"pages"`
	FailedPages []FailedPageInfo `json:"failed_pages"`
	CrawlConfig CrawlConfig      `json:"crawl_config"`
	ChunkConfig ChunkConfig      `json:"chunk_config"`
}
