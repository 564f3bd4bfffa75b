package useragent

// UserAgent 单条User-Agent记录及其分类元数据
type UserAgent struct {
	Value    string `json:"value"`    // 完整UA字符串
	Category string `json:"category"` // desktop | mobile
	Browser  string `json:"browser"`  // chrome | firefox | safari | edge
	OS       string `json:"os"`       // windows | macos | linux | android | ios
	Version  string `json:"version"`  // 浏览器主版本
	Mobile   bool   `json:"mobile"`
}

// 分类常量
const (
	CategoryDesktop = "desktop"
	CategoryMobile  = "mobile"
)

// defaultPool 内置UA池
// 覆盖主流桌面与移动浏览器的近期版本,避免运行时依赖外部数据源
var defaultPool = []UserAgent{
	// Chrome 桌面
	{
		Value:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Category: CategoryDesktop, Browser: "chrome", OS: "windows", Version: "131",
	},
	{
		Value:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Category: CategoryDesktop, Browser: "chrome", OS: "macos", Version: "131",
	},
	{
		Value:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		Category: CategoryDesktop, Browser: "chrome", OS: "linux", Version: "130",
	},
	// Firefox 桌面
	{
		Value:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		Category: CategoryDesktop, Browser: "firefox", OS: "windows", Version: "133",
	},
	{
		Value:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
		Category: CategoryDesktop, Browser: "firefox", OS: "macos", Version: "133",
	},
	{
		Value:    "Mozilla/5.0 (X11; Linux x86_64; rv:132.0) Gecko/20100101 Firefox/132.0",
		Category: CategoryDesktop, Browser: "firefox", OS: "linux", Version: "132",
	},
	// Safari 桌面
	{
		Value:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
		Category: CategoryDesktop, Browser: "safari", OS: "macos", Version: "18",
	},
	// Edge 桌面
	{
		Value:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
		Category: CategoryDesktop, Browser: "edge", OS: "windows", Version: "131",
	},
	// Chrome 移动
	{
		Value:    "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Mobile Safari/537.36",
		Category: CategoryMobile, Browser: "chrome", OS: "android", Version: "131", Mobile: true,
	},
	{
		Value:    "Mozilla/5.0 (Linux; Android 13; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Mobile Safari/537.36",
		Category: CategoryMobile, Browser: "chrome", OS: "android", Version: "130", Mobile: true,
	},
	// Safari 移动
	{
		Value:    "Mozilla/5.0 (iPhone; CPU iPhone OS 18_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Mobile/15E148 Safari/604.1",
		Category: CategoryMobile, Browser: "safari", OS: "ios", Version: "18", Mobile: true,
	},
	{
		Value:    "Mozilla/5.0 (iPad; CPU OS 18_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Mobile/15E148 Safari/604.1",
		Category: CategoryMobile, Browser: "safari", OS: "ios", Version: "18", Mobile: true,
	},
	// Firefox 移动
	{
		Value:    "Mozilla/5.0 (Android 14; Mobile; rv:133.0) Gecko/133.0 Firefox/133.0",
		Category: CategoryMobile, Browser: "firefox", OS: "android", Version: "133", Mobile: true,
	},
}

// DefaultPool 返回内置UA池的副本
func DefaultPool() []UserAgent {
	pool := make([]UserAgent, len(defaultPool))
	copy(pool, defaultPool)
	return pool
}
