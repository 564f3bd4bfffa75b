package crawler

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// dedupeIndex 页面内容去重索引
// 先用内容哈希捕获完全重复,再用词集合的Jaccard相似度捕获近似重复
// 单次爬取调用内有效,不跨调用持久化
type dedupeIndex struct {
	threshold float64
	hashes    map[string]bool
	wordSets  []map[string]bool
}

func newDedupeIndex(threshold float64) *dedupeIndex {
	return &dedupeIndex{
		threshold: threshold,
		hashes:    make(map[string]bool),
	}
}

// IsDuplicate 判断内容是否与已收录页面重复,非重复内容会被登记
// 阈值<=0时禁用近似判定,只做精确去重
func (d *dedupeIndex) IsDuplicate(content string) bool {
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
	if d.hashes[hash] {
		return true
	}

	words := wordSet(content)
	if d.threshold > 0 {
		for _, existing := range d.wordSets {
			if jaccard(words, existing) >= d.threshold {
				return true
			}
		}
	}

	d.hashes[hash] = true
	d.wordSets = append(d.wordSets, words)
	return false
}

// wordSet 把内容切成小写词集合
func wordSet(content string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(content)) {
		set[w] = true
	}
	return set
}

// jaccard 两个词集合的Jaccard相似度 |A∩B| / |A∪B|
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
