// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据文件所在目录，被跟踪的文件发生变化时回调
type FileMonitor struct {
	watcher *fsnotify.Watcher
	tracked map[string]string // 绝对路径 -> 调用方使用的原始路径
	lastMod map[string]time.Time
	mu      sync.Mutex
}

// NewFileMonitor 为给定的数据文件创建监控器
func NewFileMonitor(paths ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &FileMonitor{
		watcher: watcher,
		tracked: make(map[string]string),
		lastMod: make(map[string]time.Time),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		m.tracked[abs] = p
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return m, nil
}

// Watch 阻塞监听事件，直到ctx结束或watcher关闭
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if path, changed := m.accept(event); changed {
				go handler(path)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// accept 判断事件是否对应被跟踪的文件，并按修改时间去重
func (m *FileMonitor) accept(event fsnotify.Event) (string, bool) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.tracked[abs]
	if !ok {
		return "", false
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		delete(m.lastMod, abs)
		return original, true
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", false
	}
	if !info.ModTime().After(m.lastMod[abs]) {
		return "", false
	}
	m.lastMod[abs] = info.ModTime()
	return original, true
}

// Close 关闭底层watcher
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
