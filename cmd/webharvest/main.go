package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/core"
	"github.com/RecoveryAshes/webharvest/internal/crawler"
	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/proxy"
	"github.com/RecoveryAshes/webharvest/internal/queue"
	"github.com/RecoveryAshes/webharvest/internal/scraper"
	"github.com/RecoveryAshes/webharvest/internal/storage"
	"github.com/RecoveryAshes/webharvest/internal/useragent"
	"github.com/RecoveryAshes/webharvest/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 采集参数
	targetURL string
	urlFile   string
	mode      string
	maxPages  int
	maxDepth  int
	headless  bool
	proxyFile string
	outputDir string

	// 批量处理参数
	batchDelay      int
	continueOnError bool
)

var rootCmd = &cobra.Command{
	Use:   "webharvest",
	Short: "网页采集与内容入库工具",
	Long: `WebHarvest - 弹性网页采集与内容入库流水线 (Go版本)

从种子URL出发遍历站点,提取正文、切片后写入存储,支持:
  • 浏览器渲染和纯HTTP两种抓取模式
  • User-Agent与代理轮换、代理健康追踪
  • 同域遍历、深度/页数预算、近重复去重
  • 段落感知的文本分块(带重叠)
  • SQLite持久化任务队列(限速+重试)
  • 批量URL处理

使用示例:
  # 单站点采集
  webharvest -u https://example.com/docs

  # 批量采集 + 代理池
  webharvest -f urls.txt --proxy-file proxies.txt --mode static

  # 队列模式
  webharvest queue -f urls.txt

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.Logging

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 如果没有提供任何目标,显示帮助信息
		if targetURL == "" && urlFile == "" {
			return cmd.Help()
		}

		// 设置信号处理(Ctrl+C优雅退出)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appConfig, err := buildConfig(cmd)
		if err != nil {
			return err
		}

		if err := ValidateFlags(targetURL, appConfig.Crawl.MaxPages, appConfig.Crawl.MaxDepth, appConfig.Mode); err != nil {
			return err
		}

		proxies, err := loadProxies(appConfig)
		if err != nil {
			return err
		}

		store := storage.NewMemoryStore()

		// 批量处理模式
		if urlFile != "" {
			urls, err := utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return fmt.Errorf("读取URL文件失败: %w", err)
			}

			batch := core.NewBatchIngestor(appConfig, store, proxies, outputDir, batchDelay, continueOnError)
			if _, err := batch.IngestBatch(ctx, urls); err != nil {
				return fmt.Errorf("批量采集失败: %w", err)
			}

			utils.Info("✨ 批量采集任务完成!")
			return nil
		}

		// 单URL采集模式
		ing, err := core.NewIngestor(appConfig, store, proxies)
		if err != nil {
			return fmt.Errorf("创建采集流水线失败: %w", err)
		}
		defer ing.Close()

		report, err := ing.Ingest(ctx, targetURL)
		if err != nil {
			return fmt.Errorf("采集失败: %w", err)
		}

		if outputDir != "" {
			reporter := utils.NewReporter(outputDir, report.Domain)
			if err := reporter.GenerateReport(report); err != nil {
				utils.Warnf("报告生成失败: %v", err)
			}
		}

		// 显示统计结果
		stats := report.Stats
		fmt.Println("\n==================================================")
		fmt.Println("📊 采集统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 收录页面数: %d\n", stats.PagesProcessed)
		fmt.Printf("❌ 失败页面数: %d\n", stats.PagesFailed)
		fmt.Printf("⏭️  跳过页面数: %d\n", stats.PagesSkipped)
		fmt.Printf("🔗 发现链接数: %d\n", stats.LinksSeen)
		fmt.Printf("🧩 入库切片数: %d\n", stats.ChunksStored)
		fmt.Printf("⏱️  总耗时: %.2f秒\n", stats.Duration)
		fmt.Println("==================================================")

		utils.Info("✨ 采集任务完成!")
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "通过持久化任务队列执行抓取",
	Long: `把URL列表提交到SQLite持久化队列,由Worker池限速执行。
进程崩溃后重新运行会恢复未完成的任务。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if urlFile == "" && len(args) == 0 {
			return fmt.Errorf("需要 --url-file 或在参数中给出URL")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appConfig, err := buildConfig(cmd)
		if err != nil {
			return err
		}

		proxies, err := loadProxies(appConfig)
		if err != nil {
			return err
		}

		urls := args
		if urlFile != "" {
			fileURLs, err := utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return fmt.Errorf("读取URL文件失败: %w", err)
			}
			urls = append(urls, fileURLs...)
		}

		fetcher, closeFetcher, err := buildFetcher(appConfig, proxies)
		if err != nil {
			return err
		}
		defer closeFetcher()

		q, err := queue.New(appConfig.Queue)
		if err != nil {
			return fmt.Errorf("创建任务队列失败: %w", err)
		}

		tasks := make([]*models.ScrapeTask, 0, len(urls))
		for _, u := range urls {
			tasks = append(tasks, models.NewScrapeTask(models.GenerateID(), u, 0, nil))
		}
		if _, err := q.SubmitMany(tasks); err != nil {
			q.Stop()
			return fmt.Errorf("提交任务失败: %w", err)
		}

		err = q.Start(func(taskCtx context.Context, task *models.ScrapeTask) (string, error) {
			page, err := fetcher.Scrape(taskCtx, task.URL)
			if err != nil {
				return "", err
			}
			return crawler.ExtractContent(page.HTML), nil
		})
		if err != nil {
			q.Stop()
			return err
		}

		waitForDrain(ctx, q)

		stats, err := q.Stats()
		if err != nil {
			utils.Warnf("读取队列状态失败: %v", err)
		}
		q.Stop()

		fmt.Println("\n==================================================")
		fmt.Println("📊 队列执行统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 完成: %d\n", stats.Completed)
		fmt.Printf("❌ 失败: %d\n", stats.Failed)
		fmt.Printf("⏳ 未完成: %d\n", stats.Waiting+stats.Active+stats.Delayed)
		fmt.Println("==================================================")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("WebHarvest %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 弹性网页采集与内容入库流水线")
	},
}

// buildConfig 加载配置并应用命令行覆盖
func buildConfig(cmd *cobra.Command) (*core.Config, error) {
	appConfig, err := core.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		appConfig.Mode = mode
	}
	if flags.Changed("max-pages") {
		appConfig.Crawl.MaxPages = maxPages
	}
	if flags.Changed("depth") {
		appConfig.Crawl.MaxDepth = maxDepth
	}
	if flags.Changed("headless") {
		appConfig.Scrape.Headless = headless
	}
	if flags.Changed("proxy-file") {
		appConfig.Proxy.File = proxyFile
	}

	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	return appConfig, nil
}

// loadProxies 按配置加载代理池,未配置代理文件时返回nil(直连)
func loadProxies(appConfig *core.Config) (*proxy.Manager, error) {
	if appConfig.Proxy.File == "" {
		return nil, nil
	}

	interval := time.Duration(appConfig.Proxy.RotationInterval) * time.Second
	manager := proxy.NewManagerWithInterval(interval)
	if _, err := manager.LoadFromFile(appConfig.Proxy.File); err != nil {
		return nil, fmt.Errorf("加载代理文件失败: %w", err)
	}
	return manager, nil
}

// buildFetcher 按模式构造抓取器,返回资源释放函数
func buildFetcher(appConfig *core.Config, proxies *proxy.Manager) (crawler.Fetcher, func(), error) {
	agents := useragent.NewRotator()

	if appConfig.Mode == core.ModeStatic {
		s, err := scraper.NewStatic(appConfig.Scrape, proxies, agents)
		if err != nil {
			return nil, nil, fmt.Errorf("创建静态抓取器失败: %w", err)
		}
		return s, func() {}, nil
	}

	s, err := scraper.New(appConfig.Scrape, proxies, agents)
	if err != nil {
		return nil, nil, fmt.Errorf("创建浏览器抓取器失败: %w", err)
	}
	return s, s.Close, nil
}

// waitForDrain 轮询队列直到没有未完成任务,或收到取消信号
func waitForDrain(ctx context.Context, q *queue.TaskQueue) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Warn("收到中断信号,正在优雅关闭队列...")
			return
		case <-ticker.C:
			stats, err := q.Stats()
			if err != nil {
				return
			}
			if stats.Waiting == 0 && stats.Active == 0 && stats.Delayed == 0 {
				return
			}
		}
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "browser", "抓取模式 (browser|static)")
	rootCmd.PersistentFlags().StringVar(&proxyFile, "proxy-file", "", "代理列表文件路径")

	// 采集参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "种子URL (必需,除非使用 --url-file)")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 50, "页面预算 (1-10000)")
	rootCmd.Flags().IntVarP(&maxDepth, "depth", "d", 3, "爬取深度 (0-10)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "报告输出目录")

	// 批量处理参数
	rootCmd.Flags().IntVar(&batchDelay, "batch-delay", 1, "批量处理URL间延迟(秒)")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理")

	// 添加子命令
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
