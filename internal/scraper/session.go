package scraper

import (
	"fmt"
	"sync"

	"github.com/RecoveryAshes/webharvest/internal/proxy"
	"github.com/RecoveryAshes/webharvest/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// browserSession 进程级浏览器会话
//
// 职责:
//   - 首次使用时惰性启动浏览器,后续复用同一实例
//   - 按代理出口维持会话: 代理变化时重启浏览器(代理只能在启动参数中指定)
//   - 持有者负责在所有退出路径上显式Close,不依赖GC回收
type browserSession struct {
	mu       sync.Mutex
	browser  *rod.Browser
	headless bool
	proxyKey string // 当前会话绑定的代理连接串,空串表示直连
	redactor *utils.Redactor
}

func newBrowserSession(headless bool) *browserSession {
	return &browserSession{
		headless: headless,
		redactor: utils.NewRedactor(),
	}
}

// Acquire 获取绑定到指定代理的浏览器实例
// 当前会话的代理与请求不一致时先关闭旧实例再重启
func (s *browserSession) Acquire(p *proxy.Proxy) (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ""
	if p != nil {
		key = p.ConnectionString()
	}

	if s.browser != nil {
		if s.proxyKey == key {
			return s.browser, nil
		}
		utils.Debugf("代理出口变化,重启浏览器会话")
		s.closeLocked()
	}

	browser, err := s.launch(p)
	if err != nil {
		return nil, err
	}
	s.browser = browser
	s.proxyKey = key
	return browser, nil
}

// launch 启动并连接浏览器
func (s *browserSession) launch(p *proxy.Proxy) (*rod.Browser, error) {
	l := launcher.New().Headless(s.headless)

	// 允许访问自签名或过期证书的站点
	l = l.Set("ignore-certificate-errors")

	if p != nil {
		l = l.Proxy(p.HostPort())
		utils.Debugf("浏览器使用代理: %s", s.redactor.RedactProxyURL(p.ConnectionString()))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	// 带凭据的代理通过CDP认证回调提供用户名密码
	if p != nil && p.Username != "" {
		go func() {
			if authErr := browser.HandleAuth(p.Username, p.Password)(); authErr != nil {
				utils.Warnf("代理认证处理退出: %v", authErr)
			}
		}()
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	return browser, nil
}

// NewPage 在当前会话中打开一个空白标签页
func (s *browserSession) NewPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}
	return page, nil
}

// Close 关闭浏览器会话,幂等
func (s *browserSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *browserSession) closeLocked() {
	if s.browser == nil {
		return
	}
	if err := s.browser.Close(); err != nil {
		utils.Warnf("关闭浏览器失败: %v", err)
	}
	s.browser = nil
	s.proxyKey = ""
	utils.Debug("浏览器会话已关闭")
}
