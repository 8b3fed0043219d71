// Package tail implements the file-tail worker: follows one file
// path, emitting one record per newline-terminated line observed after
// start, tolerating rotation, truncation, and deletion/recreation.
//
// fsnotify.Watcher wakes the loop early on write/rename events, with
// the 200ms ticker kept as the authoritative fallback so behavior is
// unchanged when no filesystem-event backend is available.
package tail

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/store"
)

const (
	pollPeriod  = 200 * time.Millisecond
	missingWait = 1 * time.Second
	errorWait   = 1 * time.Second
	// maxLineBytes caps a single line's length; longer lines are
	// reported as an input error and dropped. A line is read into memory
	// in full before its length is checked.
	maxLineBytes = 1 << 20
)

// Worker follows a single file.
type Worker struct {
	path        string
	displayName string
	store       store.Store
	diag        *diag.Registry

	mu      sync.Mutex
	running bool
	offset  int64

	stop chan struct{}
	done chan struct{}
}

// New constructs a tail worker. displayName defaults to path when empty.
func New(path, displayName string, st store.Store, diagnostics *diag.Registry) *Worker {
	if displayName == "" {
		displayName = path
	}
	return &Worker{
		path:        path,
		displayName: displayName,
		store:       st,
		diag:        diagnostics,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start verifies the file exists, records the starting offset (so
// pre-existing content is ignored), and begins the polling loop in the
// background. Returns an error if the file does not exist yet — the
// caller is expected to mark the source not-running in that case.
func (w *Worker) Start(ctx context.Context) error {
	info, err := os.Stat(w.path)
	if err != nil {
		w.diag.Error("file-tailer", "start failed for "+w.path+": "+err.Error())
		return err
	}

	w.mu.Lock()
	w.offset = info.Size()
	w.running = true
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

// Running reports whether the worker's poll loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stop signals the worker and waits for it to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	<-w.done
	w.diag.Log("file-tailer", "stopped tailing "+w.path)
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)

	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		defer watcher.Close()
		watcher.Add(w.path)
	}

	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		var wake <-chan fsnotify.Event
		if watcher != nil {
			wake = watcher.Events
		}

		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		case <-wake:
			w.tick()
		}
	}
}

// tick runs one polling iteration.
func (w *Worker) tick() {
	info, err := os.Stat(w.path)
	if err != nil {
		time.Sleep(missingWait)
		return
	}

	w.mu.Lock()
	offset := w.offset
	w.mu.Unlock()

	size := info.Size()
	if size < offset {
		// Rotated or truncated.
		w.mu.Lock()
		w.offset = 0
		w.mu.Unlock()
		return
	}
	if size == offset {
		return
	}

	newOffset, lines, err := w.readLinesFrom(offset)
	if err != nil {
		w.diag.Error("file-tailer", "read error on "+w.path+": "+err.Error())
		time.Sleep(errorWait)
		return
	}

	w.mu.Lock()
	w.offset = newOffset
	w.mu.Unlock()

	for _, line := range lines {
		w.emit(line)
	}
}

// readLinesFrom opens the file, seeks to offset, and reads complete
// lines one at a time until EOF, returning the new read offset.
func (w *Worker) readLinesFrom(offset int64) (int64, []string, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return offset, nil, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, nil, err
	}

	reader := bufio.NewReader(f)
	pos := offset
	var lines []string

	for {
		raw, err := reader.ReadString('\n')
		if len(raw) == 0 && err == io.EOF {
			break
		}

		complete := strings.HasSuffix(raw, "\n")
		if !complete {
			// Partial line at EOF: leave it for the next tick.
			break
		}

		pos += int64(len(raw))
		line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")

		if len(line) > maxLineBytes {
			w.diag.Error("file-tailer", "line exceeds maximum length on "+w.path)
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}

		if err != nil && err != io.EOF {
			return pos, lines, err
		}
		if err == io.EOF {
			break
		}
	}

	return pos, lines, nil
}

func (w *Worker) emit(line string) {
	now := float64(time.Now().UnixNano()) / 1e9
	rec := model.Record{
		Source:      "file-tailer",
		Category:    w.displayName,
		Severity:    model.Log,
		Message:     line,
		EmitTime:    now,
		ReceiveTime: now,
	}
	if _, err := w.store.Insert(context.Background(), rec); err != nil {
		w.diag.Error("file-tailer", "insert failed for "+w.path+": "+err.Error())
	}
}
