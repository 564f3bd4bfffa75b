package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func writeURLFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadURLsFromFile(t *testing.T) {
	path := writeURLFile(t, `# 采集目标清单
https://example.com/docs

https://example.com/blog
not-a-url
ftp://example.com/file
`)

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Fatalf("应加载2个有效URL, 实际 %d: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/docs" || urls[1] != "https://example.com/blog" {
		t.Errorf("URL加载顺序或内容不符: %v", urls)
	}
}

func TestReadURLsFromFileAllInvalid(t *testing.T) {
	path := writeURLFile(t, "# 只有注释\nnot-a-url\n")
	if _, err := ReadURLsFromFile(path); err == nil {
		t.Error("没有有效URL时应报错")
	}
}

func TestReadURLsFromFileMissing(t *testing.T) {
	if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("文件不存在时应报错")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"标准https", "https://example.com/path", false},
		{"标准http", "http://example.com", false},
		{"缺少协议", "example.com/path", true},
		{"非http协议", "ftp://example.com", true},
		{"缺少主机", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%s) err=%v, wantErr=%v", tt.url, err, tt.wantErr)
			}
		})
	}
}
