package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
)

type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	inner TableLoader
}

func (l *countingLoader) Load(path string) (dataframe.DataFrame, error) {
	l.mu.Lock()
	l.calls[path]++
	l.mu.Unlock()
	return l.inner.Load(path)
}

func (l *countingLoader) count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[path]
}

func newCountingLoader() *countingLoader {
	return &countingLoader{calls: make(map[string]int), inner: NewLoader("")}
}

func TestDatasetCacheMemoizes(t *testing.T) {
	path := writeTemp(t, "data.csv", []byte(transformedCSV))
	loader := newCountingLoader()
	cache := NewDatasetCache(loader)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(path); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := loader.count(path); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}

	cache.Invalidate(path)
	if _, err := cache.Get(path); err != nil {
		t.Fatal(err)
	}
	if n := loader.count(path); n != 2 {
		t.Errorf("loader called %d times after Invalidate, want 2", n)
	}

	cache.InvalidateAll()
	if len(cache.Paths()) != 0 {
		t.Errorf("Paths after InvalidateAll = %v", cache.Paths())
	}
}

func TestDatasetCacheCachesFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	loader := newCountingLoader()
	cache := NewDatasetCache(loader)

	for i := 0; i < 3; i++ {
		df, err := cache.Get(path)
		if err == nil {
			t.Fatal("expected failure for missing file")
		}
		if df.Nrow() != 0 {
			t.Errorf("Nrow = %d, want 0", df.Nrow())
		}
	}
	if n := loader.count(path); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if cache.Stale(path) {
		t.Error("missing file that is still missing should not be stale")
	}

	if err := os.WriteFile(path, []byte(transformedCSV), 0644); err != nil {
		t.Fatal(err)
	}
	if !cache.Stale(path) {
		t.Error("file that appeared should be stale")
	}
}

func TestDatasetCacheStale(t *testing.T) {
	path := writeTemp(t, "data.csv", []byte(transformedCSV))
	cache := NewDatasetCache(NewLoader(""))

	if !cache.Stale(path) {
		t.Error("unloaded path should be stale")
	}
	if _, err := cache.Get(path); err != nil {
		t.Fatal(err)
	}
	if cache.Stale(path) {
		t.Error("freshly loaded path should not be stale")
	}
	if _, ok := cache.LoadedAt(path); !ok {
		t.Error("LoadedAt should report the loaded entry")
	}

	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	if !cache.Stale(path) {
		t.Error("modified file should be stale")
	}
}
