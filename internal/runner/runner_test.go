//go:build !windows

package runner

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe to write from the command's copy
// goroutine while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartStop(t *testing.T) {
	r := New("sleep", []string{"10"})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.Running() {
		t.Error("expected process to be running")
	}
	if err := r.Start(); err == nil {
		t.Error("second Start should fail while running")
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.Running() {
		t.Error("expected process to be stopped")
	}
}

func TestRestart(t *testing.T) {
	r := New("sleep", []string{"10"})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if !r.Running() {
		t.Error("expected process to be running after restart")
	}
	r.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	if err := New("true", nil).Stop(); err != nil {
		t.Fatalf("Stop without Start: %v", err)
	}
	if err := New("true", nil).Wait(); err != nil {
		t.Fatalf("Wait without Start: %v", err)
	}
}

func TestShellOutputAndDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("here"), 0o644)

	var out syncBuffer
	r := Shell("cat marker.txt; echo; echo done", WithDir(dir), WithOutput(&out, &out))
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := out.String(); got != "here\ndone\n" {
		t.Errorf("output = %q", got)
	}
}

func TestWaitReportsExitError(t *testing.T) {
	r := Shell("exit 3")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	err := r.Wait()
	if err == nil || !strings.Contains(err.Error(), "exit status 3") {
		t.Errorf("Wait() = %v, want exit status 3", err)
	}
	if r.Running() {
		t.Error("exited command reported as running")
	}
}

func TestStdinNotInherited(t *testing.T) {
	// cat reads stdin; without one it sees EOF and exits at once.
	r := New("cat", nil)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		r.Stop()
		t.Fatal("cat should exit immediately without stdin")
	}
}

func TestStopKillsIgnoringProcess(t *testing.T) {
	r := Shell(`trap "" TERM; sleep 10`, WithGracePeriod(100*time.Millisecond))
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Stop took %s, expected a kill after the grace period", elapsed)
	}
	if r.Running() {
		t.Error("process still running after Stop")
	}
}
