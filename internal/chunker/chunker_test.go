package chunker

import (
	"strings"
	"testing"

	"github.com/RecoveryAshes/webharvest/internal/models"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := NewDefault()
	chunks := c.Split("一段不需要切分的短文本")
	if len(chunks) != 1 {
		t.Fatalf("短文本应返回1个切片, 实际 %d", len(chunks))
	}
}

func TestSplitEmptyText(t *testing.T) {
	c := NewDefault()
	if chunks := c.Split("   \n\t  "); chunks != nil {
		t.Errorf("空文本应返回空序列, 实际 %v", chunks)
	}
}

func TestSplitCollapsesWhitespace(t *testing.T) {
	c := NewDefault()
	chunks := c.Split("hello    world\n\nfoo\tbar")
	if len(chunks) != 1 {
		t.Fatalf("应返回1个切片, 实际 %d", len(chunks))
	}
	if chunks[0] != "hello world foo bar" {
		t.Errorf("空白应压缩为单个空格, 实际 %q", chunks[0])
	}
}

// 约2500字符的文档按默认配置应切成3个切片,相邻切片共享200字符重叠
func TestSplitLongDocumentWithOverlap(t *testing.T) {
	c := NewDefault()

	// 16个段落,每段155字符,总长约2495字符
	para := strings.Repeat("x", 154) + "."
	paras := make([]string, 16)
	for i := range paras {
		paras[i] = para
	}
	text := strings.Join(paras, "\n\n")

	chunks := c.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("应切成3个切片, 实际 %d: 长度 %v", len(chunks), chunkLens(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > 1000 {
			t.Errorf("切片 %d 超过上限: %d字符", i, len(chunk))
		}
		if i < len(chunks)-1 && len(chunk) < 100 {
			t.Errorf("非末尾切片 %d 低于下限: %d字符", i, len(chunk))
		}
	}

	// 后一个切片以前一个切片的200字符尾部开头
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		overlap := prev[len(prev)-200:]
		if !strings.HasPrefix(chunks[i], overlap) {
			t.Errorf("切片 %d 应以切片 %d 的尾部重叠开头", i, i-1)
		}
	}
}

func TestSplitSeparatorPath(t *testing.T) {
	cfg := models.DefaultChunkConfig()
	cfg.PreserveParagraphs = false
	cfg.Separator = "\n"
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	line := strings.Repeat("y", 154) + "."
	lines := make([]string, 16)
	for i := range lines {
		lines[i] = line
	}
	chunks := c.Split(strings.Join(lines, "\n"))

	if len(chunks) != 3 {
		t.Fatalf("分隔符路径也应切成3个切片, 实际 %d", len(chunks))
	}
	prev := chunks[0]
	if !strings.HasPrefix(chunks[1], prev[len(prev)-200:]) {
		t.Error("分隔符路径同样使用精确字符重叠")
	}
}

func TestResplitOversizedBySentence(t *testing.T) {
	c := NewDefault()

	// 单个超长段落,只能按句子边界重新切分
	sentence := strings.Repeat("w", 248) + ". "
	text := strings.Repeat(sentence, 10) // 约2500字符,无段落边界

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("超长段落应被重新切分, 实际 %d 个切片", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1000 {
			t.Errorf("切片 %d 超过上限: %d字符", i, len(chunk))
		}
	}
}

func TestMergeSmallChunksForward(t *testing.T) {
	cfg := models.ChunkConfig{
		ChunkSize:          100,
		ChunkOverlap:       10,
		MinChunkSize:       50,
		PreserveParagraphs: true,
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// 第一段远低于下限,应向后合并而不是单独成片
	text := "tiny.\n\n" + strings.Repeat("a", 80) + "\n\n" + strings.Repeat("b", 80)
	chunks := c.Split(text)
	for i, chunk := range chunks {
		if i < len(chunks)-1 && len(chunk) < cfg.MinChunkSize {
			t.Errorf("非末尾切片 %d 低于下限: %q", i, chunk)
		}
	}
}

func TestChunkPageMetadata(t *testing.T) {
	c := NewDefault()
	page := models.NewPage("https://example.com/a", "标题", strings.Repeat("z", 500), nil, 1)

	chunks := c.ChunkPage(page)
	if len(chunks) != 1 {
		t.Fatalf("应产出1个切片, 实际 %d", len(chunks))
	}
	chunk := chunks[0]
	if chunk.PageID != page.ID || chunk.URL != page.URL || chunk.Title != page.Title {
		t.Error("切片元数据应来自页面记录")
	}
	if chunk.Index != 0 || chunk.TotalChunks != 1 {
		t.Errorf("序号元数据不符: index=%d total=%d", chunk.Index, chunk.TotalChunks)
	}
	if chunk.ID == "" {
		t.Error("切片应分配唯一ID")
	}
}

func TestCalculateOptimalChunkSize(t *testing.T) {
	tests := []struct {
		name      string
		maxTokens int
		want      int
	}{
		{"常规token预算", 1000, 3600},
		{"小预算", 200, 400},
		{"预算低于余量时退回默认", 50, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateOptimalChunkSize(tt.maxTokens); got != tt.want {
				t.Errorf("CalculateOptimalChunkSize(%d) = %d, want %d", tt.maxTokens, got, tt.want)
			}
		})
	}
}

func chunkLens(chunks []string) []int {
	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = len(c)
	}
	return lens
}
