package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 指向不存在的搜索路径,确保使用默认值
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode != ModeBrowser {
		t.Errorf("默认模式应为browser, 实际 %s", cfg.Mode)
	}
	if cfg.Crawl.MaxPages != 50 {
		t.Errorf("默认页面预算应为50, 实际 %d", cfg.Crawl.MaxPages)
	}
	if cfg.Scrape.Timeout != 30*time.Second {
		t.Errorf("默认导航超时应为30s, 实际 %v", cfg.Scrape.Timeout)
	}
	if cfg.Chunk.ChunkSize != 1000 || cfg.Chunk.ChunkOverlap != 200 {
		t.Errorf("默认分块参数不符: %+v", cfg.Chunk)
	}
	if cfg.Queue.Concurrency != 5 {
		t.Errorf("默认Worker数应为5, 实际 %d", cfg.Queue.Concurrency)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("默认日志级别应为info, 实际 %s", cfg.Logging.Level)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `mode: static
crawl:
  max_pages: 5
  max_depth: 1
scrape:
  timeout: 10s
  retries: 1
chunk:
  chunk_size: 500
  chunk_overlap: 50
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode != ModeStatic {
		t.Errorf("模式应被覆盖为static, 实际 %s", cfg.Mode)
	}
	if cfg.Crawl.MaxPages != 5 || cfg.Crawl.MaxDepth != 1 {
		t.Errorf("爬取配置未覆盖: %+v", cfg.Crawl)
	}
	if cfg.Scrape.Timeout != 10*time.Second {
		t.Errorf("导航超时未覆盖: %v", cfg.Scrape.Timeout)
	}
	if cfg.Chunk.ChunkSize != 500 || cfg.Chunk.ChunkOverlap != 50 {
		t.Errorf("分块配置未覆盖: %+v", cfg.Chunk)
	}
	// 未覆盖的字段保留默认值
	if cfg.Queue.Concurrency != 5 {
		t.Errorf("队列默认值丢失: %d", cfg.Queue.Concurrency)
	}
}

func TestLoadConfigInvalidMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: teleport\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("未知模式应被拒绝")
	}
}

func TestLoadConfigOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("crawl:\n  max_pages: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("越界的页面预算应被拒绝")
	}
}
