package scraper

import (
	"runtime"
	"sync"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 可用内存安全阈值(字节)
	MaxTabsLimit        int   // 绝对最大标签页数
	TabMemoryUsage      int64 // 单个标签页平均内存消耗(字节)
}

// DefaultResourceMonitorConfig 默认监控配置
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: 1024 * 1024 * 1024, // 1GB
		SafetyThreshold:     500 * 1024 * 1024,  // 500MB
		MaxTabsLimit:        16,
		TabMemoryUsage:      100 * 1024 * 1024, // 100MB per tab
	}
}

// ResourceMonitor 系统资源监控器
// 职责: 按可用内存和CPU核数推算并发标签页上限,限制批量抓取的扇出规模
type ResourceMonitor struct {
	config      ResourceMonitorConfig
	totalMemory uint64

	cacheMu       sync.RWMutex
	cachedMaxTabs int
	lastCacheTime time.Time
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.TabMemoryUsage == 0 {
		config.TabMemoryUsage = 100 * 1024 * 1024
	}
	if config.MaxTabsLimit == 0 {
		config.MaxTabsLimit = 16
	}

	vmStat, err := mem.VirtualMemory()
	var totalMem uint64
	if err != nil {
		utils.Warnf("获取系统内存失败,使用默认值: %v", err)
		totalMem = 4 * 1024 * 1024 * 1024
	} else {
		totalMem = vmStat.Total
		utils.Debugf("系统总内存: %.2f GB", float64(totalMem)/(1024*1024*1024))
	}

	return &ResourceMonitor{
		config:      config,
		totalMemory: totalMem,
	}
}

// CalculateMaxTabs 计算当前允许的最大并发标签页数
// 取内存余量推算值、CPU核数与绝对上限三者的最小值,结果缓存1秒
func (rm *ResourceMonitor) CalculateMaxTabs() int {
	rm.cacheMu.RLock()
	if time.Since(rm.lastCacheTime) < time.Second && rm.cachedMaxTabs > 0 {
		cached := rm.cachedMaxTabs
		rm.cacheMu.RUnlock()
		return cached
	}
	rm.cacheMu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	availableMemory := int64(rm.totalMemory) - int64(memStats.Alloc) - rm.config.SafetyReserveMemory

	maxTabsByMemory := 1
	if availableMemory > rm.config.SafetyThreshold {
		surplus := availableMemory - rm.config.SafetyThreshold
		maxTabsByMemory = int(surplus / rm.config.TabMemoryUsage)
		if maxTabsByMemory < 1 {
			maxTabsByMemory = 1
		}
	}

	result := maxTabsByMemory
	if cores := runtime.NumCPU(); cores < result {
		result = cores
	}
	if rm.config.MaxTabsLimit < result {
		result = rm.config.MaxTabsLimit
	}
	if result < 1 {
		result = 1
	}

	rm.cacheMu.Lock()
	rm.cachedMaxTabs = result
	rm.lastCacheTime = time.Now()
	rm.cacheMu.Unlock()

	return result
}

// CPUUsage 系统CPU平均使用率(百分比)
func (rm *ResourceMonitor) CPUUsage() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		utils.Warnf("获取CPU使用率失败: %v", err)
		return 0.0
	}
	return percentages[0]
}
