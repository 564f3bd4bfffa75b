package models

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ValidateURL 验证URL是否为合法的http(s)地址
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL协议必须是http或https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL缺少主机名")
	}
	return nil
}

// GenerateID 生成唯一标识
func GenerateID() string {
	return uuid.New().String()
}

// NewPage 创建页面记录并分配ID
func NewPage(pageURL, title, content string, links []string, depth int) *Page {
	return &Page{
		ID:        GenerateID(),
		URL:       pageURL,
		Title:     title,
		Content:   content,
		Links:     links,
		Depth:     depth,
		FetchedAt: time.Now(),
	}
}

// NewScrapeTask 创建任务,未指定优先级时使用默认值
func NewScrapeTask(id, taskURL string, priority int, metadata map[string]string) *ScrapeTask {
	if priority == 0 {
		priority = DefaultTaskPriority
	}
	return &ScrapeTask{
		ID:        id,
		URL:       taskURL,
		Priority:  priority,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
}
