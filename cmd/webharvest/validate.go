package main

import (
	"fmt"
	"net/url"

	"github.com/RecoveryAshes/webharvest/internal/core"
	"github.com/RecoveryAshes/webharvest/internal/models"
)

// ValidateURL 验证URL格式
func ValidateURL(urlStr string) error {
	return models.ValidateURL(urlStr)
}

// ValidateFlags 验证命令行标志
func ValidateFlags(targetURL string, maxPages int, maxDepth int, mode string) error {
	// 验证URL
	if targetURL != "" {
		if err := ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的种子URL: %w", err)
		}
	}

	// 验证页面预算
	if maxPages < 1 || maxPages > 10000 {
		return fmt.Errorf("页面预算必须在1-10000之间,当前值: %d", maxPages)
	}

	// 验证深度
	if maxDepth < 0 || maxDepth > 10 {
		return fmt.Errorf("爬取深度必须在0-10之间,当前值: %d", maxDepth)
	}

	// 验证模式
	if mode != core.ModeBrowser && mode != core.ModeStatic {
		return fmt.Errorf("无效的抓取模式: %s (有效值: browser, static)", mode)
	}

	return nil
}

// NormalizeSeedURL 规范化种子URL,缺少协议时默认https
func NormalizeSeedURL(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}
