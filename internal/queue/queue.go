package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/utils"
	"github.com/vnykmshr/goflow/pkg/ratelimit/bucket"
)

// Processor 执行单个任务,返回成功载荷或错误
// 重试由队列负责,Processor只需执行一次尝试
type Processor func(ctx context.Context, task *models.ScrapeTask) (string, error)

// ResultCallback 任务终态通知回调,尽力而为,回调panic不影响worker
type ResultCallback func(result *models.ScrapeResult)

// TaskQueue 持久化抓取任务队列
//
// 职责:
//   - 任务持久化在SQLite中,进程崩溃后可恢复,任务ID是幂等键
//   - 固定大小worker池消费,令牌桶限制每秒启动的任务数
//   - 每个任务在指数退避下重试,重试耗尽记为失败,不影响队列运转
//   - 每个任务的终态产出一条结果,投递到结果通道和可选回调
type TaskQueue struct {
	cfg     models.QueueConfig
	store   *taskStore
	limiter bucket.Limiter

	results  chan *models.ScrapeResult
	callback ResultCallback

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  atomic.Bool
	stopping atomic.Bool
}

// New 创建任务队列并打开持久化存储
func New(cfg models.QueueConfig) (*TaskQueue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("队列配置无效: %w", err)
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	burst := int(cfg.RateLimitPerSecond * 2)
	if burst < 1 {
		burst = 1
	}
	limiter, err := bucket.NewSafe(bucket.Limit(cfg.RateLimitPerSecond), burst)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("创建速率限制器失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TaskQueue{
		cfg:     cfg,
		store:   store,
		limiter: limiter,
		results: make(chan *models.ScrapeResult, 256),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Submit 提交单个任务,返回任务ID
// 同一ID重复提交是幂等的: 已存在的任务不会被覆盖或重新排队
func (q *TaskQueue) Submit(task *models.ScrapeTask) (string, error) {
	if err := task.Validate(); err != nil {
		return "", err
	}
	if task.Priority == 0 {
		task.Priority = models.DefaultTaskPriority
	}
	if task.Timestamp.IsZero() {
		task.Timestamp = time.Now()
	}

	inserted, err := q.store.Insert(task)
	if err != nil {
		return "", err
	}
	if !inserted {
		utils.Debugf("任务已存在,忽略重复提交: %s", task.ID)
	}
	return task.ID, nil
}

// SubmitMany 批量提交,返回全部任务ID
// 任何一个任务校验失败都会中止并返回错误
func (q *TaskQueue) SubmitMany(tasks []*models.ScrapeTask) ([]string, error) {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		id, err := q.Submit(task)
		if err != nil {
			return ids, fmt.Errorf("提交任务 %s 失败: %w", task.ID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// OnResult 注册终态结果回调,必须在Start之前调用
func (q *TaskQueue) OnResult(callback ResultCallback) {
	q.callback = callback
}

// Results 终态结果通道
// 缓冲写满时结果仅通过回调投递,不阻塞worker
func (q *TaskQueue) Results() <-chan *models.ScrapeResult {
	return q.results
}

// Start 启动worker池开始消费
func (q *TaskQueue) Start(processor Processor) error {
	if processor == nil {
		return fmt.Errorf("缺少任务处理器")
	}
	if !q.started.CompareAndSwap(false, true) {
		return fmt.Errorf("队列已启动")
	}

	utils.Infof("🚀 任务队列启动: worker=%d, 速率=%.1f/秒, 重试=%d",
		q.cfg.Concurrency, q.cfg.RateLimitPerSecond, q.cfg.Retries)

	for i := 0; i < q.cfg.Concurrency; i++ {
		q.wg.Add(1)
		go func(workerID int) {
			defer q.wg.Done()
			q.worker(workerID, processor)
		}(i)
	}
	return nil
}

// Stop 优雅排空: 不再领取新任务,等待在途任务完成后返回
func (q *TaskQueue) Stop() {
	if !q.stopping.CompareAndSwap(false, true) {
		return
	}
	utils.Info("任务队列开始排空")
	q.wg.Wait()
	q.cancel()
	close(q.results)
	if err := q.store.Close(); err != nil {
		utils.Warnf("关闭队列存储失败: %v", err)
	}
	utils.Info("任务队列已停止")
}

// Stats 队列状态快照
func (q *TaskQueue) Stats() (models.QueueStats, error) {
	return q.store.Stats()
}

// Clear 丢弃所有任务记录(含已完成)
func (q *TaskQueue) Clear() error {
	return q.store.Clear()
}

// worker 消费循环: 领取任务、限速、执行、上报终态
func (q *TaskQueue) worker(workerID int, processor Processor) {
	for {
		if q.stopping.Load() {
			return
		}

		task, err := q.store.Claim()
		if err != nil {
			utils.Errorf("worker %d 领取任务失败: %v", workerID, err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			select {
			case <-q.ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		// 速率限制门控任务启动,与并发度相互独立
		if err := q.limiter.Wait(q.ctx); err != nil {
			q.requeue(task)
			return
		}

		q.execute(workerID, task, processor)
	}
}

// execute 在指数退避下执行任务直到成功或重试耗尽
func (q *TaskQueue) execute(workerID int, task *models.ScrapeTask, processor Processor) {
	start := time.Now()
	attempts := q.cfg.Retries + 1
	delay := q.cfg.BackoffDelay

	var data string
	var lastErr error
	executed := 0

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := q.store.RecordAttempt(task.ID); err != nil {
			utils.Warnf("记录任务执行次数失败 [%s]: %v", task.ID, err)
		}
		executed++

		data, lastErr = processor(q.ctx, task)
		if lastErr == nil {
			break
		}

		utils.Warnf("worker %d 任务执行失败 [%s] (尝试 %d/%d): %v",
			workerID, task.ID, attempt, attempts, lastErr)

		if attempt < attempts {
			// 退避期间任务处于delayed状态
			if err := q.store.SetStatus(task.ID, models.TaskStatusDelayed); err != nil {
				utils.Warnf("更新任务状态失败 [%s]: %v", task.ID, err)
			}
			select {
			case <-q.ctx.Done():
				q.requeue(task)
				return
			case <-time.After(delay):
			}
			delay *= 2
			if err := q.store.SetStatus(task.ID, models.TaskStatusActive); err != nil {
				utils.Warnf("更新任务状态失败 [%s]: %v", task.ID, err)
			}
		}
	}

	result := &models.ScrapeResult{
		TaskID:    task.ID,
		URL:       task.URL,
		Attempts:  executed,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
		Metadata:  task.Metadata,
	}

	if lastErr == nil {
		result.Success = true
		result.Data = data
		if err := q.store.SetStatus(task.ID, models.TaskStatusCompleted); err != nil {
			utils.Warnf("标记任务完成失败 [%s]: %v", task.ID, err)
		}
	} else {
		result.Error = lastErr.Error()
		if err := q.store.MarkFailed(task.ID, result.Error); err != nil {
			utils.Warnf("标记任务失败状态失败 [%s]: %v", task.ID, err)
		}
		utils.Errorf("任务重试耗尽 [%s]: %v", task.ID, lastErr)
	}

	q.deliver(result)
}

// requeue 把中断的任务放回待执行状态
func (q *TaskQueue) requeue(task *models.ScrapeTask) {
	if err := q.store.SetStatus(task.ID, models.TaskStatusWaiting); err != nil {
		utils.Warnf("任务重新排队失败 [%s]: %v", task.ID, err)
	}
}

// deliver 投递终态结果: 先回调,再尽力写入结果通道
func (q *TaskQueue) deliver(result *models.ScrapeResult) {
	if q.callback != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					utils.Warnf("结果回调panic,已忽略 [%s]: %v", result.TaskID, r)
				}
			}()
			q.callback(result)
		}()
	}

	select {
	case q.results <- result:
	default:
		utils.Debugf("结果通道已满,丢弃通道投递 [%s]", result.TaskID)
	}
}
