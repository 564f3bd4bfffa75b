package storage

import (
	"context"
	"testing"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	err := store.Upsert(context.Background(), []Document{
		{ID: "d1", Text: "golang web crawler tutorial", Metadata: map[string]string{"url": "https://a.example.com"}},
		{ID: "d2", Text: "python data analysis guide", Metadata: map[string]string{"url": "https://b.example.com"}},
		{ID: "d3", Text: "golang concurrency patterns", Metadata: map[string]string{"url": "https://a.example.com"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestUpsertOverwritesByID(t *testing.T) {
	store := seedStore(t)
	err := store.Upsert(context.Background(), []Document{
		{ID: "d1", Text: "更新后的文本"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if store.Size() != 3 {
		t.Errorf("同ID覆盖不应增加文档数, 实际 %d", store.Size())
	}
}

func TestSearchRanking(t *testing.T) {
	store := seedStore(t)
	hits, err := store.Search(context.Background(), "golang crawler", SearchOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("应命中2条, 实际 %d", len(hits))
	}
	if hits[0].ID != "d1" {
		t.Errorf("两词全中的文档应排第一, 实际 %s", hits[0].ID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Error("结果应按分数降序")
	}
}

func TestSearchFilterAndMinScore(t *testing.T) {
	store := seedStore(t)

	hits, err := store.Search(context.Background(), "golang", SearchOptions{
		Limit:  10,
		Filter: map[string]string{"url": "https://a.example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("过滤后应命中2条, 实际 %d", len(hits))
	}

	hits, err = store.Search(context.Background(), "golang crawler", SearchOptions{
		Limit:    10,
		MinScore: 0.9,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "d1" {
		t.Errorf("分数下限应过滤部分命中, 实际 %v", hits)
	}
}

func TestSearchLimit(t *testing.T) {
	store := seedStore(t)
	hits, err := store.Search(context.Background(), "golang", SearchOptions{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("Limit应截断结果, 实际 %d", len(hits))
	}
}
