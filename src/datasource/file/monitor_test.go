package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileMonitorTrackedWrite(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "Data_Responden.csv")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(tracked, []byte("a\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	monitor, err := NewFileMonitor(tracked)
	if err != nil {
		t.Fatalf("NewFileMonitor: %v", err)
	}
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	go monitor.Watch(ctx, func(p string) { changed <- p })

	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tracked, []byte("a\n2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-changed:
		if p != tracked {
			t.Errorf("handler got %q, want %q", p, tracked)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for tracked file")
	}
}
