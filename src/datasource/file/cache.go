// cache.go
package file

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// cacheEntry 一个数据文件的缓存结果
type cacheEntry struct {
	df       dataframe.DataFrame
	err      error
	modTime  time.Time // 加载时文件的修改时间，文件不存在时为零值
	loadedAt time.Time
}

// DatasetCache 按路径缓存已加载的数据集
// 由main持有，通过Invalidate/InvalidateAll显式失效
type DatasetCache struct {
	loader  TableLoader
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

// NewDatasetCache 创建缓存
func NewDatasetCache(loader TableLoader) *DatasetCache {
	return &DatasetCache{
		loader:  loader,
		entries: make(map[string]*cacheEntry),
	}
}

// Get 返回path对应的数据集，首次访问时加载
// 加载失败时返回空DataFrame及失败原因，失败结果同样被缓存直到失效
func (c *DatasetCache) Get(path string) (dataframe.DataFrame, error) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return e.df, e.err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 双重检查，避免并发重复加载
	if e, ok := c.entries[path]; ok {
		return e.df, e.err
	}

	e = &cacheEntry{loadedAt: time.Now()}
	if info, err := os.Stat(path); err == nil {
		e.modTime = info.ModTime()
	}
	e.df, e.err = c.loader.Load(path)
	c.entries[path] = e
	return e.df, e.err
}

// Invalidate 使单个路径失效
func (c *DatasetCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// InvalidateAll 清空全部缓存
func (c *DatasetCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Stale 文件修改时间与缓存时不一致(含新出现或被删除)时返回true
func (c *DatasetCache) Stale(path string) bool {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok {
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		return !e.modTime.IsZero()
	}
	return !info.ModTime().Equal(e.modTime)
}

// Paths 返回当前已缓存的路径
func (c *DatasetCache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// LoadedAt 返回path最近一次加载的时间
func (c *DatasetCache) LoadedAt(path string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	if !ok {
		return time.Time{}, false
	}
	return e.loadedAt, true
}
