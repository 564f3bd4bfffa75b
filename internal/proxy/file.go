package proxy

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/webharvest/internal/utils"
)

// LoadFromFile 从文本文件批量加载代理
// 每行一个代理,冒号分隔: host:port[:username:password[:protocol[:country]]]
// 格式错误的行记录警告后跳过,不影响其余行的加载
func (m *Manager) LoadFromFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("打开代理文件失败: %w", err)
	}
	defer file.Close()

	loaded := 0
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p, err := ParseLine(line)
		if err != nil {
			utils.Warnf("跳过无效代理行 (行 %d): %s - %v", lineNum, line, err)
			continue
		}
		m.Add(p)
		loaded++
	}

	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("读取代理文件失败: %w", err)
	}

	utils.Infof("从 %s 加载了 %d 个代理", path, loaded)
	return loaded, nil
}

// ParseLine 解析单行代理定义
// 合法字段数: 2 (host:port)、4 (+凭据)、5 (+协议)、6 (+国家)
func ParseLine(line string) (*Proxy, error) {
	parts := strings.Split(line, ":")
	if len(parts) != 2 && len(parts) != 4 && len(parts) != 5 && len(parts) != 6 {
		return nil, fmt.Errorf("字段数无效: %d", len(parts))
	}

	host := strings.TrimSpace(parts[0])
	if host == "" {
		return nil, fmt.Errorf("主机名为空")
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("端口无效: %s", parts[1])
	}

	p := &Proxy{
		Host:     host,
		Port:     port,
		Protocol: ProtocolHTTP,
	}

	if len(parts) >= 4 {
		p.Username = strings.TrimSpace(parts[2])
		p.Password = strings.TrimSpace(parts[3])
	}
	if len(parts) >= 5 {
		protocol := strings.ToLower(strings.TrimSpace(parts[4]))
		switch protocol {
		case ProtocolHTTP, ProtocolHTTPS, ProtocolSOCKS4, ProtocolSOCKS5:
			p.Protocol = protocol
		default:
			return nil, fmt.Errorf("协议无效: %s", parts[4])
		}
	}
	if len(parts) == 6 {
		p.Country = strings.ToUpper(strings.TrimSpace(parts[5]))
	}

	return p, nil
}
