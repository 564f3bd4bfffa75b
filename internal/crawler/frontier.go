package crawler

// frontierEntry 待爬取的(URL, 深度)对
type frontierEntry struct {
	url   string
	depth int
}

// Frontier 爬取边界: FIFO工作队列加已见集合
//
// 不变式:
//   - 同一个规范化URL只会入队一次,因此也只会出队一次
//   - 已见集合的大小等于历史上入队过的去重URL数
//
// 每次爬取调用创建一个新实例,不跨调用持久化
// Crawler单goroutine驱动,不加锁
type Frontier struct {
	queue []frontierEntry
	seen  map[string]bool
}

// NewFrontier 创建空的爬取边界
func NewFrontier() *Frontier {
	return &Frontier{
		seen: make(map[string]bool),
	}
}

// Push 入队一个规范化URL
// 已见过的URL直接拒绝,返回是否实际入队
func (f *Frontier) Push(url string, depth int) bool {
	if f.seen[url] {
		return false
	}
	f.seen[url] = true
	f.queue = append(f.queue, frontierEntry{url: url, depth: depth})
	return true
}

// Pop 按FIFO顺序出队
func (f *Frontier) Pop() (string, int, bool) {
	if len(f.queue) == 0 {
		return "", 0, false
	}
	entry := f.queue[0]
	f.queue = f.queue[1:]
	return entry.url, entry.depth, true
}

// Seen 该URL是否已入队过
func (f *Frontier) Seen(url string) bool {
	return f.seen[url]
}

// Pending 待处理条目数
func (f *Frontier) Pending() int {
	return len(f.queue)
}

// SeenCount 历史入队的去重URL数
func (f *Frontier) SeenCount() int {
	return len(f.seen)
}
