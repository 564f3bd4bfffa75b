package useragent

import (
	"strings"
	"testing"
)

func TestGetRandomNeverEmpty(t *testing.T) {
	r := NewRotator()
	for i := 0; i < 50; i++ {
		ua := r.GetRandom()
		if ua.Value == "" {
			t.Fatal("GetRandom返回空UA")
		}
	}
}

func TestGetByCategory(t *testing.T) {
	r := NewRotator()

	tests := []struct {
		name     string
		category string
	}{
		{"桌面分类", CategoryDesktop},
		{"移动分类", CategoryMobile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				ua := r.GetByCategory(tt.category)
				if !strings.EqualFold(ua.Category, tt.category) {
					t.Errorf("GetByCategory(%q)返回分类 %q", tt.category, ua.Category)
				}
			}
		})
	}
}

func TestGetByBrowser(t *testing.T) {
	r := NewRotator()
	for i := 0; i < 20; i++ {
		ua := r.GetByBrowser("firefox")
		if ua.Browser != "firefox" {
			t.Errorf("GetByBrowser(firefox)返回浏览器 %q", ua.Browser)
		}
	}
}

func TestGetByOSFallback(t *testing.T) {
	// 池中没有该操作系统时应退回全池随机而不是失败
	r := NewRotatorWithPool([]UserAgent{
		{Value: "ua-1", Category: CategoryDesktop, Browser: "chrome", OS: "windows"},
	})

	ua := r.GetByOS("plan9")
	if ua.Value != "ua-1" {
		t.Errorf("无命中时应退回全池随机, 实际 %q", ua.Value)
	}
}

func TestEmptyPoolFallsBackToDefault(t *testing.T) {
	r := NewRotatorWithPool(nil)
	if r.Size() == 0 {
		t.Fatal("空池应退回内置UA池")
	}
	if ua := r.GetRandom(); ua.Value == "" {
		t.Error("退回内置池后GetRandom仍返回空UA")
	}
}

func TestLastUsed(t *testing.T) {
	r := NewRotator()
	if r.LastUsed().Value != "" {
		t.Error("未选取过时LastUsed应返回零值")
	}
	ua := r.GetRandom()
	if r.LastUsed().Value != ua.Value {
		t.Errorf("LastUsed应记录最近选取: %q != %q", r.LastUsed().Value, ua.Value)
	}
}

func TestAddAndAll(t *testing.T) {
	r := NewRotator()
	before := r.Size()

	custom := UserAgent{Value: "CustomBot/1.0", Category: CategoryDesktop, Browser: "custom", OS: "linux"}
	r.Add(custom)

	if r.Size() != before+1 {
		t.Fatalf("Add后池大小应为 %d, 实际 %d", before+1, r.Size())
	}

	// All返回快照,修改快照不影响内部池
	all := r.All()
	all[0] = UserAgent{Value: "mutated"}
	if r.All()[0].Value == "mutated" {
		t.Error("All应返回快照而非内部切片")
	}

	found := false
	for _, ua := range r.All() {
		if ua.Value == custom.Value {
			found = true
			break
		}
	}
	if !found {
		t.Error("Add的UA未出现在All结果中")
	}
}
