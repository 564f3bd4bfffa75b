package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize 把URL规范化为去重用的标准形式
// 规则: 必须是绝对http(s)地址,主机名小写,去掉片段,去掉末尾斜杠
// 幂等: Normalize(Normalize(u)) == Normalize(u)
func Normalize(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("URL解析失败: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL协议必须是http或https: %s", rawURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL缺少主机名: %s", rawURL)
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return parsed.String(), nil
}

// ResolveAndNormalize 先把href解析为基于base的绝对地址,再规范化
func ResolveAndNormalize(baseURL, href string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("基准URL解析失败: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("链接解析失败: %w", err)
	}
	return Normalize(base.ResolveReference(ref).String())
}
