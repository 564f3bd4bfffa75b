package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusWaiting   TaskStatus = "waiting"   // 待执行
	TaskStatusActive    TaskStatus = "active"    // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败(重试耗尽)
	TaskStatusDelayed   TaskStatus = "delayed"   // 等待重试退避
)

// DefaultTaskPriority 默认任务优先级(数值越小优先级越高)
const DefaultTaskPriority = 10

// ScrapeTask 提交到任务队列的抓取任务
// ID由调用方提供,同时作为队列的幂等去重键
type ScrapeTask struct {
	ID        string            `json:"id"`                 // 调用方指定的唯一ID
	URL       string            `json:"url"`                // 目标URL
	Priority  int               `json:"priority,omitempty"` // 优先级,数值越小越优先,默认10
	Metadata  map[string]string `json:"metadata,omitempty"` // 任意元数据,原样回传
	Timestamp time.Time         `json:"timestamp"`          // 提交时间
}

// Validate 验证任务字段
func (t *ScrapeTask) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("任务ID不能为空")
	}
	if err := ValidateURL(t.URL); err != nil {
		return fmt.Errorf("任务URL无效: %w", err)
	}
	return nil
}

// ScrapeResult 单个任务的最终执行结果
// 无论成功还是重试耗尽后的失败,都会产出一条结果
type ScrapeResult struct {
	TaskID    string            `json:"task_id"`
	URL       string            `json:"url"`
	Success   bool              `json:"success"`
	Data      string            `json:"data,omitempty"`  // 成功时的载荷(通常为HTML或提取文本)
	Error     string            `json:"error,omitempty"` // 失败时的最终错误
	Attempts  int               `json:"attempts"`        // 实际执行次数
	Duration  time.Duration     `json:"duration"`        // 从首次启动到终态的耗时
	Timestamp time.Time         `json:"timestamp"`       // 终态时间
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ToJSON 序列化为JSON
func (r *ScrapeResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// QueueStats 队列状态快照
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}
