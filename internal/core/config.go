package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/utils"
	"github.com/spf13/viper"
)

// 抓取模式
const (
	ModeBrowser = "browser" // 无头浏览器渲染后抓取
	ModeStatic  = "static"  // 纯HTTP抓取,不执行JS
)

// Config 应用程序配置
type Config struct {
	Scrape  models.ScrapeConfig `mapstructure:"scrape"`
	Crawl   models.CrawlConfig  `mapstructure:"crawl"`
	Chunk   models.ChunkConfig  `mapstructure:"chunk"`
	Queue   models.QueueConfig  `mapstructure:"queue"`
	Proxy   ProxyConfig         `mapstructure:"proxy"`
	Logging utils.LogConfig     `mapstructure:"logging"`
	Mode    string              `mapstructure:"mode"`
}

// ProxyConfig 代理池配置
type ProxyConfig struct {
	File             string `mapstructure:"file"`              // 代理文件路径,为空时直连
	RotationInterval int    `mapstructure:"rotation_interval"` // 轮换窗口(秒)
}

// LoadConfig 加载配置文件
// 未找到配置文件时使用默认值,解析失败才报错
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".webharvest"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在,使用默认值
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 逐段校验配置
func (c *Config) Validate() error {
	if c.Mode != ModeBrowser && c.Mode != ModeStatic {
		return fmt.Errorf("抓取模式必须是 %s 或 %s, 当前值: %s", ModeBrowser, ModeStatic, c.Mode)
	}
	if err := c.Scrape.Validate(); err != nil {
		return fmt.Errorf("scrape配置: %w", err)
	}
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("crawl配置: %w", err)
	}
	if err := c.Chunk.Validate(); err != nil {
		return fmt.Errorf("chunk配置: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue配置: %w", err)
	}
	return nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeBrowser)

	// 抓取默认值
	v.SetDefault("scrape.headless", true)
	v.SetDefault("scrape.timeout", 30*time.Second)
	v.SetDefault("scrape.wait_until", models.WaitLoad)
	v.SetDefault("scrape.retries", 3)
	v.SetDefault("scrape.retry_delay", time.Second)
	v.SetDefault("scrape.max_concurrency", 3)
	v.SetDefault("scrape.cache_enabled", true)
	v.SetDefault("scrape.cache_ttl", time.Hour)
	v.SetDefault("scrape.viewport_width", 1920)
	v.SetDefault("scrape.viewport_height", 1080)

	// 爬取默认值
	v.SetDefault("crawl.max_pages", 50)
	v.SetDefault("crawl.max_depth", 3)
	v.SetDefault("crawl.min_content_length", 100)
	v.SetDefault("crawl.page_timeout", 30*time.Second)
	v.SetDefault("crawl.dedupe_threshold", 0.9)

	// 分块默认值
	v.SetDefault("chunk.chunk_size", 1000)
	v.SetDefault("chunk.chunk_overlap", 200)
	v.SetDefault("chunk.min_chunk_size", 100)
	v.SetDefault("chunk.preserve_paragraphs", true)
	v.SetDefault("chunk.separator", "\n")

	// 队列默认值
	v.SetDefault("queue.db_path", "queue.db")
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.rate_limit_per_second", 2.0)
	v.SetDefault("queue.retries", 3)
	v.SetDefault("queue.backoff_delay", time.Second)

	// 代理默认值
	v.SetDefault("proxy.file", "")
	v.SetDefault("proxy.rotation_interval", 300)

	// 日志默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7)
	v.SetDefault("logging.compress", true)
}
