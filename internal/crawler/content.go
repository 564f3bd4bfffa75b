package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/webharvest/internal/utils"
)

var spaceRe = regexp.MustCompile(`\s+`)

// 不参与正文提取的标签
const strippedTags = "script, style, meta, link, noscript, nav, footer, svg, iframe, form"

// 正文块元素,按文档顺序读取,避免body整体文本带入导航等样板内容
const contentTags = "h1, h2, h3, h4, h5, h6, p, li"

// ExtractContent 从HTML提取纯文本正文
// 先剔除非正文标签,再按文档顺序拼接标题/段落/列表项文本,块之间以换行分隔
// 解析失败返回空串,调用方按内容过短处理
func ExtractContent(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		utils.Warnf("解析页面HTML失败: %v", err)
		return ""
	}

	doc.Find(strippedTags).Remove()

	blocks := make([]string, 0)
	doc.Find(contentTags).Each(func(_ int, sel *goquery.Selection) {
		// li内嵌套的块元素文本会被父级重复收集,跳过含块子元素的节点
		if sel.Children().Is(contentTags) {
			return
		}
		text := strings.TrimSpace(spaceRe.ReplaceAllString(sel.Text(), " "))
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	return strings.Join(blocks, "\n")
}
