package core

import (
	"context"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/proxy"
	"github.com/RecoveryAshes/webharvest/internal/storage"
	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// BatchIngestor 批量采集器
type BatchIngestor struct {
	cfg           *Config
	store         storage.Store
	proxies       *proxy.Manager
	outputDir     string
	batchDelay    time.Duration
	continueOnErr bool
}

// BatchResult 批量采集中单个种子的结果
type BatchResult struct {
	URL         string
	Success     bool
	Error       error
	Stats       models.CrawlStats
	ProcessedAt time.Time
	Duration    float64
}

// BatchSummary 批量采集摘要
type BatchSummary struct {
	TotalURLs     int
	SuccessCount  int
	FailCount     int
	TotalPages    int
	TotalChunks   int
	TotalDuration float64
	Results       []BatchResult
}

// NewBatchIngestor 创建批量采集器
func NewBatchIngestor(cfg *Config, store storage.Store, proxies *proxy.Manager, outputDir string, batchDelay int, continueOnErr bool) *BatchIngestor {
	return &BatchIngestor{
		cfg:           cfg,
		store:         store,
		proxies:       proxies,
		outputDir:     outputDir,
		batchDelay:    time.Duration(batchDelay) * time.Second,
		continueOnErr: continueOnErr,
	}
}

// IngestBatch 批量采集种子URL列表
func (b *BatchIngestor) IngestBatch(ctx context.Context, urls []string) (*BatchSummary, error) {
	utils.Infof("🚀 开始批量采集: %d个URL", len(urls))

	summary := &BatchSummary{
		TotalURLs: len(urls),
		Results:   make([]BatchResult, 0, len(urls)),
	}

	startTime := time.Now()

	for i, seedURL := range urls {
		utils.Infof("\n==================== [%d/%d] ====================", i+1, len(urls))
		utils.Infof("种子URL: %s", seedURL)

		result := b.ingestSingleURL(ctx, seedURL)
		summary.Results = append(summary.Results, result)

		if result.Success {
			summary.SuccessCount++
			summary.TotalPages += result.Stats.PagesProcessed
			summary.TotalChunks += result.Stats.ChunksStored
		} else {
			summary.FailCount++
			utils.Errorf("❌ 采集失败: %v", result.Error)

			if !b.continueOnErr {
				utils.Warn("批量采集中止 (--continue-on-error=false)")
				break
			}
		}

		// 取消时立即停止,不再等待延迟
		if ctx.Err() != nil {
			utils.Warn("批量采集被取消")
			break
		}

		// 批量延迟(最后一个URL不需要延迟)
		if i < len(urls)-1 && b.batchDelay > 0 {
			utils.Debugf("等待 %.0f 秒后处理下一个URL...", b.batchDelay.Seconds())
			select {
			case <-time.After(b.batchDelay):
			case <-ctx.Done():
			}
		}
	}

	summary.TotalDuration = time.Since(startTime).Seconds()

	b.printSummary(summary)

	return summary, nil
}

// ingestSingleURL 采集单个种子URL并生成报告
func (b *BatchIngestor) ingestSingleURL(ctx context.Context, seedURL string) BatchResult {
	result := BatchResult{
		URL:         seedURL,
		ProcessedAt: time.Now(),
	}

	startTime := time.Now()

	ing, err := NewIngestor(b.cfg, b.store, b.proxies)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(startTime).Seconds()
		return result
	}
	defer ing.Close()

	report, err := ing.Ingest(ctx, seedURL)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(startTime).Seconds()
		return result
	}

	// 报告写盘失败不影响采集结果
	if b.outputDir != "" {
		reporter := utils.NewReporter(b.outputDir, report.Domain)
		if err := reporter.GenerateReport(report); err != nil {
			utils.Warnf("报告生成失败: %v", err)
		}
	}

	result.Success = true
	result.Stats = report.Stats
	result.Duration = time.Since(startTime).Seconds()

	return result
}

// printSummary 打印批量采集摘要
func (b *BatchIngestor) printSummary(summary *BatchSummary) {
	utils.Info("\n==================================================")
	utils.Info("📊 批量采集摘要")
	utils.Info("==================================================")
	utils.Infof("总URL数: %d", summary.TotalURLs)
	utils.Infof("✅ 成功: %d", summary.SuccessCount)
	utils.Infof("❌ 失败: %d", summary.FailCount)
	utils.Infof("📄 总页面数: %d", summary.TotalPages)
	utils.Infof("🧩 总切片数: %d", summary.TotalChunks)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.TotalDuration)
	utils.Info("==================================================")

	if summary.FailCount > 0 {
		utils.Warn("\n失败的URL:")
		for _, result := range summary.Results {
			if !result.Success {
				utils.Warnf("  - %s: %v", result.URL, result.Error)
			}
		}
	}
}
