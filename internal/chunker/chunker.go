package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/utils"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	paragraphRe  = regexp.MustCompile(`\n\s*\n`)
	sentenceRe   = regexp.MustCompile(`([.!?])\s+`)
)

// Chunker 文本分块器
//
// 职责:
//   - 把页面纯文本切成适配嵌入模型token上限的重叠切片
//   - 优先保持段落边界,必要时按分隔符/句子边界切分
//   - 相邻切片共享固定长度的字符重叠,两种切分路径使用同一重叠定义
//
// 无共享状态,可并发调用
type Chunker struct {
	cfg models.ChunkConfig
}

// New 创建分块器,配置非法时返回错误
func New(cfg models.ChunkConfig) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// NewDefault 使用默认配置创建分块器
func NewDefault() *Chunker {
	c, _ := New(models.DefaultChunkConfig())
	return c
}

// Split 把文本切成有序切片
// 清洗后的文本不超过切片上限时整体作为唯一切片返回,空文本返回空序列
func (c *Chunker) Split(text string) []string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}

	// 整体已在上限内,无需切分
	if len(collapse(cleaned)) <= c.cfg.ChunkSize {
		return []string{collapse(cleaned)}
	}

	var pieces []string
	if c.cfg.PreserveParagraphs {
		for _, p := range paragraphRe.Split(cleaned, -1) {
			if p = collapse(p); p != "" {
				pieces = append(pieces, p)
			}
		}
	} else {
		sep := c.cfg.Separator
		if sep == "" {
			sep = "\n"
		}
		for _, p := range strings.Split(cleaned, sep) {
			if p = collapse(p); p != "" {
				pieces = append(pieces, p)
			}
		}
	}

	chunks := c.accumulate(pieces)
	chunks = c.mergeSmall(chunks)
	chunks = c.resplitLarge(chunks)
	return chunks
}

// accumulate 贪心聚合片段,关闭切片时用其尾部字符作为下一切片的重叠种子
func (c *Chunker) accumulate(pieces []string) []string {
	var chunks []string
	current := ""

	for _, piece := range pieces {
		if current == "" {
			current = piece
			continue
		}

		// 追加会超限且当前切片已达下限时关闭当前切片
		if len(current)+1+len(piece) > c.cfg.ChunkSize && len(current) >= c.cfg.MinChunkSize {
			chunks = append(chunks, current)
			current = tail(current, c.cfg.ChunkOverlap) + " " + piece
			continue
		}
		current = current + " " + piece
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// mergeSmall 把低于下限的切片(最后一个除外)向后合并
func (c *Chunker) mergeSmall(chunks []string) []string {
	result := make([]string, 0, len(chunks))
	for i := 0; i < len(chunks); i++ {
		if len(chunks[i]) < c.cfg.MinChunkSize && i < len(chunks)-1 {
			chunks[i+1] = chunks[i] + " " + chunks[i+1]
			continue
		}
		result = append(result, chunks[i])
	}
	return result
}

// resplitLarge 把超限切片按句子边界重新切分
func (c *Chunker) resplitLarge(chunks []string) []string {
	result := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) <= c.cfg.ChunkSize {
			result = append(result, chunk)
			continue
		}
		result = append(result, c.splitBySentence(chunk)...)
	}
	return result
}

// splitBySentence 按 ./!/? 加空白的句子边界切分,单句超限时硬切
func (c *Chunker) splitBySentence(text string) []string {
	// 在句末标点后插入哨兵再切分,保留标点本身
	marked := sentenceRe.ReplaceAllString(text, "$1\x00")
	sentences := strings.Split(marked, "\x00")

	var result []string
	current := ""
	for _, s := range sentences {
		if s == "" {
			continue
		}
		if current != "" && len(current)+1+len(s) > c.cfg.ChunkSize {
			result = append(result, current)
			current = s
			continue
		}
		if current == "" {
			current = s
		} else {
			current = current + " " + s
		}
		// 单句超限,按上限硬切
		for len(current) > c.cfg.ChunkSize {
			cut := cutAt(current, c.cfg.ChunkSize)
			result = append(result, current[:cut])
			current = current[cut:]
		}
	}
	if current != "" {
		result = append(result, current)
	}
	return result
}

// ChunkPage 把页面切分为带元数据的Chunk记录
func (c *Chunker) ChunkPage(page *models.Page) []models.Chunk {
	texts := c.Split(page.Content)
	if len(texts) == 0 {
		return nil
	}

	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			ID:          models.GenerateID(),
			PageID:      page.ID,
			URL:         page.URL,
			Title:       page.Title,
			Text:        text,
			Index:       i,
			TotalChunks: len(texts),
		}
	}
	utils.Debugf("页面 %s 切分为 %d 个切片", page.URL, len(chunks))
	return chunks
}

// CalculateOptimalChunkSize 按嵌入模型token预算推导切片字符数
// 预留100个token余量,按每字符约0.25个token换算
func CalculateOptimalChunkSize(maxTokens int) int {
	const (
		avgTokensPerChar = 0.25
		tokenHeadroom    = 100
	)
	usable := maxTokens - tokenHeadroom
	if usable <= 0 {
		return models.DefaultChunkConfig().ChunkSize
	}
	return int(float64(usable) / avgTokensPerChar)
}

// collapse 把连续空白压缩为单个空格
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// tail 取字符串末尾最多n字节,回退到rune边界避免截断多字节字符
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// cutAt 在不超过n字节处找rune边界
func cutAt(s string, n int) int {
	if len(s) <= n {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
