package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// Document 写入存储的嵌入单元
// 切片文本加上来源元数据(url/title/序号)构成存储契约
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScoredDocument 检索命中结果
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// SearchOptions 检索参数
type SearchOptions struct {
	Limit    int               // 返回条数上限 (默认:10)
	Filter   map[string]string // 元数据等值过滤
	MinScore float64           // 低于该分数的命中被丢弃
}

// Store 嵌入/存储协作方的边界
// 核心只依赖该契约,具体后端(向量库、全文索引)由调用方注入
type Store interface {
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, opts SearchOptions) ([]ScoredDocument, error)
}

// MemoryStore 进程内存储实现
// 用词重叠比例做朴素相关性评分,供测试与无外部后端的单机运行使用
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

// Upsert 按ID写入或覆盖文档
func (m *MemoryStore) Upsert(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		m.docs[doc.ID] = doc
	}
	utils.Debugf("存储写入 %d 条文档,当前共 %d 条", len(docs), len(m.docs))
	return nil
}

// Search 按查询词重叠度排序检索
func (m *MemoryStore) Search(_ context.Context, query string, opts SearchOptions) ([]ScoredDocument, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	queryTerms := strings.Fields(strings.ToLower(query))
	if len(queryTerms) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]ScoredDocument, 0)
	for _, doc := range m.docs {
		if !matchesFilter(doc.Metadata, opts.Filter) {
			continue
		}
		score := overlapScore(queryTerms, doc.Text)
		if score <= 0 || score < opts.MinScore {
			continue
		}
		hits = append(hits, ScoredDocument{Document: doc, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// Size 当前文档数
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// matchesFilter 元数据必须包含过滤器的全部键值对
func matchesFilter(metadata, filter map[string]string) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

// overlapScore 查询词命中比例 [0,1]
func overlapScore(queryTerms []string, text string) float64 {
	textLower := strings.ToLower(text)
	matched := 0
	for _, term := range queryTerms {
		if strings.Contains(textLower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
