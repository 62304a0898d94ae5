package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/pslog"
)

func testLogger(t *testing.T) pslog.Logger {
	t.Helper()
	return pslog.NewWithOptions(os.Stderr, pslog.Options{
		Mode:    pslog.ModeConsole,
		NoColor: true,
	})
}

func TestNextReleasedOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shell.txt")
	if err := os.WriteFile(path, []byte("start\n"), 0644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	w, err := New(path, 50*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	first := w.Next()
	second := w.Next()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("more\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	for name, ch := range map[string]<-chan struct{}{"first": first, "second": second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s waiter not released after write", name)
		}
	}
}

func TestNextReleasedOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shell.txt")

	w, err := New(path, 50*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	ch := w.Next()
	if err := os.WriteFile(path, []byte("born\n"), 0644); err != nil {
		t.Fatalf("create log: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released after create")
	}
}

func TestPopWaitersOrder(t *testing.T) {
	w := &Watcher{}
	a := make(chan struct{})
	b := make(chan struct{})
	c := make(chan struct{})
	w.waiters = []chan struct{}{a, b, c}

	got := w.popWaiters()
	if len(got) != 3 || got[0] != c || got[1] != b || got[2] != a {
		t.Fatalf("popWaiters() order wrong: most recently registered must come first")
	}
	if len(w.waiters) != 0 {
		t.Fatalf("popWaiters() left %d waiters behind", len(w.waiters))
	}
}

func TestCloseReleasesWaiters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shell.txt")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	w, err := New(path, time.Second, testLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ch := w.Next()
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiter not released on close")
	}

	// Closing twice must be harmless.
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
