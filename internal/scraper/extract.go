package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractData 从HTML中按CSS选择器提取数据
// attribute为空时取元素文本,否则取指定属性值,空值被丢弃
// 无状态辅助函数,用于抓取后的临时结构化提取
func ExtractData(html, selector, attribute string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	values := make([]string, 0)
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		var value string
		if attribute == "" {
			value = strings.TrimSpace(sel.Text())
		} else {
			value, _ = sel.Attr(attribute)
			value = strings.TrimSpace(value)
		}
		if value != "" {
			values = append(values, value)
		}
	})
	return values, nil
}

// resolveURL 把href解析为基于baseURL的绝对http(s)地址
// 非http(s)或解析失败返回空串
func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
