package models

import (
	"fmt"
	"time"
)

// 等待条件: 页面导航后等待哪种就绪信号
const (
	WaitLoad   = "load"   // window load事件 (默认)
	WaitStable = "stable" // DOM稳定
	WaitIdle   = "idle"   // 网络空闲
)

// ScrapeConfig 单页抓取配置
// 所有字段都有文档化默认值,Validate在构造时检查范围
type ScrapeConfig struct {
	Headless       bool          `json:"headless" mapstructure:"headless"`               // 无头模式 (默认:true)
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`                 // 导航超时 (默认:30s)
	WaitUntil      string        `json:"wait_until" mapstructure:"wait_until"`           // 等待条件 load|stable|idle (默认:load)
	Retries        int           `json:"retries" mapstructure:"retries"`                 // 失败重试次数 (默认:3)
	RetryDelay     time.Duration `json:"retry_delay" mapstructure:"retry_delay"`         // 重试退避基准 (默认:1s)
	MaxConcurrency int           `json:"max_concurrency" mapstructure:"max_concurrency"` // 批量抓取并发上限 (默认:3)
	CacheEnabled   bool          `json:"cache_enabled" mapstructure:"cache_enabled"`     // 启用结果缓存 (默认:true)
	CacheTTL       time.Duration `json:"cache_ttl" mapstructure:"cache_ttl"`             // 缓存有效期 (默认:1h)
	BlockResources []string      `json:"block_resources" mapstructure:"block_resources"` // 拦截的资源类型: images|fonts|media|stylesheets
	Proxy          string        `json:"proxy" mapstructure:"proxy"`                     // 显式代理连接串(为空时由代理池轮换)
	UserAgent      string        `json:"user_agent" mapstructure:"user_agent"`           // 显式User-Agent(为空时随机轮换)
	Cookies        []Cookie      `json:"cookies" mapstructure:"cookies"`                 // 预置Cookie
	ViewportWidth  int           `json:"viewport_width" mapstructure:"viewport_width"`   // 视口宽度 (默认:1920)
	ViewportHeight int           `json:"viewport_height" mapstructure:"viewport_height"` // 视口高度 (默认:1080)
}

// DefaultScrapeConfig 返回文档化的抓取默认配置
func DefaultScrapeConfig() ScrapeConfig {
	return ScrapeConfig{
		Headless:       true,
		Timeout:        30 * time.Second,
		WaitUntil:      WaitLoad,
		Retries:        3,
		RetryDelay:     time.Second,
		MaxConcurrency: 3,
		CacheEnabled:   true,
		CacheTTL:       time.Hour,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// Validate 验证抓取配置
func (c *ScrapeConfig) Validate() error {
	if c.Timeout < time.Second || c.Timeout > 5*time.Minute {
		return fmt.Errorf("导航超时必须在1秒-5分钟之间")
	}
	switch c.WaitUntil {
	case WaitLoad, WaitStable, WaitIdle:
	default:
		return fmt.Errorf("等待条件必须是 load|stable|idle,当前值: %s", c.WaitUntil)
	}
	if c.Retries < 0 || c.Retries > 10 {
		return fmt.Errorf("重试次数必须在0-10之间")
	}
	if c.MaxConcurrency < 1 || c.MaxConcurrency > 20 {
		return fmt.Errorf("并发数必须在1-20之间")
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		return fmt.Errorf("启用缓存时TTL必须大于0")
	}
	return nil
}

// CrawlConfig 遍历引擎配置
type CrawlConfig struct {
	MaxPages         int           `json:"max_pages" mapstructure:"max_pages"`                   // 页面预算 (默认:50)
	MaxDepth         int           `json:"max_depth" mapstructure:"max_depth"`                   // 最大深度 (默认:3)
	IncludePatterns  []string      `json:"include_patterns" mapstructure:"include_patterns"`     // URL准入正则(默认: 与种子同主机)
	ExcludePatterns  []string      `json:"exclude_patterns" mapstructure:"exclude_patterns"`     // URL排除正则(默认: 二进制扩展名/查询串)
	MinContentLength int           `json:"min_content_length" mapstructure:"min_content_length"` // 低于该长度的页面不收录 (默认:100)
	PageTimeout      time.Duration `json:"page_timeout" mapstructure:"page_timeout"`             // 单页加载超时 (默认:30s)
	DedupeThreshold  float64       `json:"dedupe_threshold" mapstructure:"dedupe_threshold"`     // 近重复内容的Jaccard阈值 (默认:0.9, 0=禁用)
}

// DefaultCrawlConfig 返回文档化的爬取默认配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxPages:         50,
		MaxDepth:         3,
		MinContentLength: 100,
		PageTimeout:      30 * time.Second,
		DedupeThreshold:  0.9,
	}
}

// Validate 验证爬取配置
func (c *CrawlConfig) Validate() error {
	if c.MaxPages < 1 || c.MaxPages > 10000 {
		return fmt.Errorf("页面预算必须在1-10000之间")
	}
	if c.MaxDepth < 0 || c.MaxDepth > 10 {
		return fmt.Errorf("深度必须在0-10之间")
	}
	if c.MinContentLength < 0 {
		return fmt.Errorf("最小内容长度不能为负")
	}
	if c.DedupeThreshold < 0 || c.DedupeThreshold > 1 {
		return fmt.Errorf("近重复阈值必须在0.0-1.0之间")
	}
	return nil
}

// ChunkConfig 文本分块配置
type ChunkConfig struct {
	ChunkSize          int    `json:"chunk_size" mapstructure:"chunk_size"`                   // 切片上限(字符) (默认:1000)
	ChunkOverlap       int    `json:"chunk_overlap" mapstructure:"chunk_overlap"`             // 相邻切片重叠(字符) (默认:200)
	MinChunkSize       int    `json:"min_chunk_size" mapstructure:"min_chunk_size"`           // 切片下限(字符) (默认:100)
	PreserveParagraphs bool   `json:"preserve_paragraphs" mapstructure:"preserve_paragraphs"` // 优先保持段落边界 (默认:true)
	Separator          string `json:"separator" mapstructure:"separator"`                     // 不保持段落时的切分符 (默认:"\n")
}

// DefaultChunkConfig 返回文档化的分块默认配置
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:          1000,
		ChunkOverlap:       200,
		MinChunkSize:       100,
		PreserveParagraphs: true,
		Separator:          "\n",
	}
}

// Validate 验证分块配置
func (c *ChunkConfig) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("切片上限必须大于0")
	}
	if c.MinChunkSize < 0 || c.MinChunkSize > c.ChunkSize {
		return fmt.Errorf("切片下限必须在0-%d之间", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("重叠长度必须小于切片上限")
	}
	return nil
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	DBPath             string        `json:"db_path" mapstructure:"db_path"`                             // SQLite队列存储路径 (默认:queue.db)
	Concurrency        int           `json:"concurrency" mapstructure:"concurrency"`                     // Worker数量 (默认:5)
	RateLimitPerSecond float64       `json:"rate_limit_per_second" mapstructure:"rate_limit_per_second"` // 每秒启动任务上限 (默认:2)
	Retries            int           `json:"retries" mapstructure:"retries"`                             // 任务重试次数 (默认:3)
	BackoffDelay       time.Duration `json:"backoff_delay" mapstructure:"backoff_delay"`                 // 指数退避基准 (默认:1s)
}

// DefaultQueueConfig 返回文档化的队列默认配置
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		DBPath:             "queue.db",
		Concurrency:        5,
		RateLimitPerSecond: 2,
		Retries:            3,
		BackoffDelay:       time.Second,
	}
}

// Validate 验证队列配置
func (c *QueueConfig) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("队列存储路径不能为空")
	}
	if c.Concurrency < 1 || c.Concurrency > 100 {
		return fmt.Errorf("Worker数量必须在1-100之间")
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitPerSecond > 1000 {
		return fmt.Errorf("速率限制必须在0-1000之间")
	}
	if c.Retries < 0 || c.Retries > 10 {
		return fmt.Errorf("重试次数必须在0-10之间")
	}
	if c.BackoffDelay <= 0 {
		return fmt.Errorf("退避基准必须大于0")
	}
	return nil
}
