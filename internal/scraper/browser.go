package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/webharvest/internal/models"
	"github.com/RecoveryAshes/webharvest/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockableTypes 可拦截的资源类型映射
var blockableTypes = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
}

// extractLinksJS 提取页面上所有绝对http(s)链接
const extractLinksJS = `() => {
	var elements = document.querySelectorAll('a[href]');
	var links = [];
	var seen = {};
	for (var i = 0; i < elements.length; i++) {
		var href = elements[i].href;
		if (href && (href.indexOf('http://') === 0 || href.indexOf('https://') === 0) && !seen[href]) {
			seen[href] = true;
			links.push(href);
		}
	}
	return links;
}`

// fetchWithBrowser 在浏览器标签页中完成一次导航与提取
// 标签页仅在本次抓取内存活,所有退出路径都会关闭
func (s *Scraper) fetchWithBrowser(ctx context.Context, target string, ident identity) (result *models.ScrapedPage, err error) {
	// rod在连接断开时会panic,转换为普通错误交给重试层
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic [%s]: %v", target, r)
			err = fmt.Errorf("浏览器操作异常: %v", r)
		}
	}()

	start := time.Now()

	browser, err := s.session.Acquire(ident.proxy)
	if err != nil {
		return nil, err
	}

	rawPage, err := s.session.NewPage(browser)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rawPage.Close(); closeErr != nil {
			utils.Debugf("关闭标签页失败: %v", closeErr)
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	page := rawPage.Context(navCtx)

	if err := s.preparePage(page, target, ident); err != nil {
		return nil, err
	}

	// 监听文档响应事件,捕获最终状态码和响应头
	var respMu sync.Mutex
	statusCode := 0
	respHeaders := http.Header{}
	go page.EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type != proto.NetworkResourceTypeDocument {
			return
		}
		respMu.Lock()
		statusCode = e.Response.Status
		for name, value := range e.Response.Headers {
			respHeaders.Set(name, value.Str())
		}
		respMu.Unlock()
	})()

	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("导航失败: %w", err)
	}
	if err := s.waitReady(page); err != nil {
		return nil, fmt.Errorf("等待页面就绪失败: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("获取HTML失败: %w", err)
	}

	title := ""
	if info, infoErr := page.Info(); infoErr == nil {
		title = info.Title
	}

	links := s.extractLinks(page, target)
	cookies := collectCookies(page)

	respMu.Lock()
	status := statusCode
	headers := respHeaders.Clone()
	respMu.Unlock()
	if status == 0 {
		// 从缓存渲染等路径可能没有文档响应事件
		status = http.StatusOK
	}

	return &models.ScrapedPage{
		URL:        target,
		StatusCode: status,
		Title:      title,
		HTML:       html,
		Links:      links,
		Headers:    headers,
		Cookies:    cookies,
		Duration:   time.Since(start),
		FetchedAt:  time.Now(),
	}, nil
}

// preparePage 导航前配置标签页: UA、视口、Cookie、资源拦截
func (s *Scraper) preparePage(page *rod.Page, target string, ident identity) error {
	if ident.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ident.userAgent}); err != nil {
			return fmt.Errorf("设置User-Agent失败: %w", err)
		}
	}

	if s.cfg.ViewportWidth > 0 && s.cfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             s.cfg.ViewportWidth,
			Height:            s.cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("设置视口失败: %w", err)
		}
	}

	if len(ident.cookies) > 0 {
		params := make([]*proto.NetworkCookieParam, 0, len(ident.cookies))
		for _, c := range ident.cookies {
			param := &proto.NetworkCookieParam{
				Name:  c.Name,
				Value: c.Value,
				Path:  c.Path,
			}
			if c.Domain != "" {
				param.Domain = c.Domain
			} else {
				param.URL = target
			}
			params = append(params, param)
		}
		if err := page.SetCookies(params); err != nil {
			return fmt.Errorf("设置Cookie失败: %w", err)
		}
	}

	if len(s.cfg.BlockResources) > 0 {
		if err := s.installResourceBlocking(page); err != nil {
			return err
		}
	}
	return nil
}

// installResourceBlocking 安装请求拦截,中止配置类型的资源请求
// 纯带宽优化,拦截失败不影响抓取正确性
func (s *Scraper) installResourceBlocking(page *rod.Page) error {
	blocked := make(map[proto.NetworkResourceType]bool, len(s.cfg.BlockResources))
	for _, name := range s.cfg.BlockResources {
		if t, ok := blockableTypes[strings.ToLower(name)]; ok {
			blocked[t] = true
		} else {
			utils.Warnf("未知的可拦截资源类型,忽略: %s", name)
		}
	}
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()
	err := router.Add("*", "", func(ctx *rod.Hijack) {
		if blocked[ctx.Request.Type()] {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return fmt.Errorf("安装资源拦截失败: %w", err)
	}
	go router.Run()
	return nil
}

// waitReady 按配置的等待条件等待页面就绪
func (s *Scraper) waitReady(page *rod.Page) error {
	switch s.cfg.WaitUntil {
	case models.WaitIdle:
		return page.WaitIdle(s.cfg.Timeout)
	case models.WaitStable:
		return page.WaitStable(time.Second)
	default:
		return page.WaitLoad()
	}
}

// extractLinks 通过页面JS提取所有绝对http(s)链接
// 提取失败只记录日志,返回空列表
func (s *Scraper) extractLinks(page *rod.Page, target string) []string {
	result, err := page.Evaluate(&rod.EvalOptions{JS: extractLinksJS})
	if err != nil {
		utils.Warnf("提取链接失败 [%s]: %v", target, err)
		return nil
	}

	links := make([]string, 0)
	for _, item := range result.Value.Arr() {
		if item.Str() != "" {
			links = append(links, item.Str())
		}
	}
	return links
}

// collectCookies 读取页面当前Cookie
func collectCookies(page *rod.Page) []models.Cookie {
	raw, err := page.Cookies([]string{})
	if err != nil {
		utils.Debugf("读取Cookie失败: %v", err)
		return nil
	}
	cookies := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return cookies
}
