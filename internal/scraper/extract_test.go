package scraper

import (
	"reflect"
	"testing"
)

const sampleHTML = `<html><head><title>测试页</title></head><body>
<ul>
  <li class="item">第一项</li>
  <li class="item">第二项</li>
  <li class="item">   </li>
</ul>
<a href="/a">A</a>
<a href="https://other.example.com/b">B</a>
<img src="/logo.png" alt="logo">
</body></html>`

func TestExtractDataText(t *testing.T) {
	values, err := ExtractData(sampleHTML, "li.item", "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"第一项", "第二项"}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("ExtractData文本结果 = %v, want %v (空值应被丢弃)", values, want)
	}
}

func TestExtractDataAttribute(t *testing.T) {
	values, err := ExtractData(sampleHTML, "a", "href")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/a", "https://other.example.com/b"}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("ExtractData属性结果 = %v, want %v", values, want)
	}
}

func TestExtractDataNoMatch(t *testing.T) {
	values, err := ExtractData(sampleHTML, "table td", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 0 {
		t.Errorf("无匹配时应返回空结果, 实际 %v", values)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{"相对路径", "https://example.com/dir/page", "/a", "https://example.com/a"},
		{"同级路径", "https://example.com/dir/page", "other", "https://example.com/dir/other"},
		{"绝对地址", "https://example.com/", "https://other.example.com/b", "https://other.example.com/b"},
		{"javascript伪协议", "https://example.com/", "javascript:void(0)", ""},
		{"mailto", "https://example.com/", "mailto:a@b.c", ""},
		{"空href", "https://example.com/", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveURL(tt.base, tt.href); got != tt.want {
				t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
		})
	}
}

func TestDecompressResponsePassthrough(t *testing.T) {
	body := []byte("plain body")
	got, err := decompressResponse("", body)
	if err != nil || string(got) != "plain body" {
		t.Errorf("无编码时应原样返回, got=%q err=%v", got, err)
	}

	if _, err := decompressResponse("zstd", body); err == nil {
		t.Error("不支持的编码应返回错误")
	}
}
