package proxy

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// 支持的代理协议
const (
	ProtocolHTTP   = "http"
	ProtocolHTTPS  = "https"
	ProtocolSOCKS4 = "socks4"
	ProtocolSOCKS5 = "socks5"
)

// 健康判定阈值: 至少5次使用且错误率超过70%时标记为不可用
const (
	healthMinAttempts   = 5
	healthErrorRateHigh = 0.7
)

// Proxy 网络出口代理
// Manager对外只暴露副本快照,计数器的并发更新全部收敛在Manager内部
type Proxy struct {
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	Protocol     string    `json:"protocol"` // http | https | socks4 | socks5
	Username     string    `json:"username,omitempty"`
	Password     string    `json:"password,omitempty"`
	Country      string    `json:"country,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
	LastUsed     time.Time `json:"last_used,omitempty"`
	LastTested   time.Time `json:"last_tested,omitempty"`
	IsWorking    bool      `json:"is_working"`
}

// Key 代理在池中的唯一标识 (host:port)
func (p *Proxy) Key() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Attempts 总使用次数
func (p *Proxy) Attempts() int {
	return p.SuccessCount + p.ErrorCount
}

// SuccessRate 成功率,无使用记录时为0
func (p *Proxy) SuccessRate() float64 {
	attempts := p.Attempts()
	if attempts == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(attempts)
}

// ConnectionString 渲染标准连接串
// protocol://[user:pass@]host:port
func (p *Proxy) ConnectionString() string {
	protocol := p.Protocol
	if protocol == "" {
		protocol = ProtocolHTTP
	}
	if p.Username != "" && p.Password != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", protocol, p.Username, p.Password, p.Host, p.Port)
	}
	return fmt.Sprintf("%s://%s:%d", protocol, p.Host, p.Port)
}

// HostPort 不含协议与凭据的地址形式,用于浏览器启动参数
func (p *Proxy) HostPort() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// ParseConnectionString 解析 protocol://[user:pass@]host:port 形式的连接串
func ParseConnectionString(connString string) (*Proxy, error) {
	parsed, err := url.Parse(connString)
	if err != nil {
		return nil, fmt.Errorf("代理连接串无效: %w", err)
	}
	switch parsed.Scheme {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolSOCKS4, ProtocolSOCKS5:
	default:
		return nil, fmt.Errorf("代理协议无效: %s", parsed.Scheme)
	}
	if parsed.Hostname() == "" || parsed.Port() == "" {
		return nil, fmt.Errorf("代理连接串缺少主机或端口")
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("代理端口无效: %s", parsed.Port())
	}

	p := &Proxy{
		Host:     parsed.Hostname(),
		Port:     port,
		Protocol: parsed.Scheme,
	}
	if parsed.User != nil {
		p.Username = parsed.User.Username()
		p.Password, _ = parsed.User.Password()
	}
	return p, nil
}

// clone 深拷贝,保证调用方拿到的快照与内部状态隔离
func (p *Proxy) clone() *Proxy {
	c := *p
	if p.Tags != nil {
		c.Tags = make([]string, len(p.Tags))
		copy(c.Tags, p.Tags)
	}
	return &c
}
