package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	_ "modernc.org/sqlite"
)

// taskStore SQLite持久化任务存储
// 任务ID是主键,同时充当提交幂等键: 重复提交同一ID被静默忽略
type taskStore struct {
	db *sql.DB
}

// openStore 打开存储并初始化schema
// 进程崩溃时残留的active任务在下次打开时重置为waiting,保证可恢复
func openStore(path string) (*taskStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开队列存储失败: %w", err)
	}
	// SQLite单写者,串行化连接避免SQLITE_BUSY
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 10,
			metadata TEXT,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			submitted_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_claim ON tasks(status, priority, submitted_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化队列schema失败: %w", err)
	}

	// 崩溃恢复: 上次未完成的active/delayed任务重新排队
	if _, err := db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE status IN (?, ?)`,
		models.TaskStatusWaiting, time.Now().Unix(),
		models.TaskStatusActive, models.TaskStatusDelayed,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("恢复未完成任务失败: %w", err)
	}

	return &taskStore{db: db}, nil
}

// Insert 写入新任务,ID已存在时忽略
// 返回是否实际插入
func (s *taskStore) Insert(task *models.ScrapeTask) (bool, error) {
	metadata := ""
	if len(task.Metadata) > 0 {
		raw, err := json.Marshal(task.Metadata)
		if err != nil {
			return false, fmt.Errorf("序列化任务元数据失败: %w", err)
		}
		metadata = string(raw)
	}

	now := time.Now()
	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO tasks (id, url, priority, metadata, status, attempts, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, task.ID, task.URL, task.Priority, metadata, models.TaskStatusWaiting,
		task.Timestamp.UnixNano(), now.Unix())
	if err != nil {
		return false, fmt.Errorf("写入任务失败: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Claim 原子领取下一个待执行任务并标记为active
// 领取顺序: 优先级升序(数值小优先),同优先级按提交时间
// 无待执行任务时返回(nil, nil)
func (s *taskStore) Claim() (*models.ScrapeTask, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT id, url, priority, metadata, submitted_at
		FROM tasks
		WHERE status = ?
		ORDER BY priority ASC, submitted_at ASC
		LIMIT 1
	`, models.TaskStatusWaiting)

	var task models.ScrapeTask
	var metadata string
	var submittedAt int64
	if err := row.Scan(&task.ID, &task.URL, &task.Priority, &metadata, &submittedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &task.Metadata); err != nil {
			return nil, fmt.Errorf("反序列化任务元数据失败: %w", err)
		}
	}
	task.Timestamp = time.Unix(0, submittedAt)

	if _, err := tx.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		models.TaskStatusActive, time.Now().Unix(), task.ID,
	); err != nil {
		return nil, err
	}
	return &task, tx.Commit()
}

// SetStatus 更新任务状态
func (s *taskStore) SetStatus(id string, status models.TaskStatus) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id,
	)
	return err
}

// RecordAttempt 累加执行次数
func (s *taskStore) RecordAttempt(id string) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		time.Now().Unix(), id,
	)
	return err
}

// MarkFailed 记录终态失败和最终错误
func (s *taskStore) MarkFailed(id, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		models.TaskStatusFailed, errMsg, time.Now().Unix(), id,
	)
	return err
}

// Stats 按状态统计任务数
func (s *taskStore) Stats() (models.QueueStats, error) {
	stats := models.QueueStats{}
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status models.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		switch status {
		case models.TaskStatusWaiting:
			stats.Waiting = count
		case models.TaskStatusActive:
			stats.Active = count
		case models.TaskStatusCompleted:
			stats.Completed = count
		case models.TaskStatusFailed:
			stats.Failed = count
		case models.TaskStatusDelayed:
			stats.Delayed = count
		}
	}
	return stats, rows.Err()
}

// Clear 清空全部任务记录
func (s *taskStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM tasks`)
	return err
}

// Close 关闭底层数据库
func (s *taskStore) Close() error {
	return s.db.Close()
}
