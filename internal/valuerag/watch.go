package valuerag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
)

const defaultDebounce = 2 * time.Second

// sourceWatcher 监听 PDF 目录与链接文件，事件合并后触发一次批量导入。
type sourceWatcher struct {
	watcher   *fsnotify.Watcher
	pdfDir    string
	linksFile string
	debounce  time.Duration
}

func newSourceWatcher(pdfDir, linksFile string, debounce time.Duration) (*sourceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// 编辑器保存链接文件时常用 rename 替换，监听所在目录而不是文件本身
	for _, dir := range uniqueDirs(pdfDir, filepath.Dir(linksFile)) {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return &sourceWatcher{
		watcher:   w,
		pdfDir:    filepath.Clean(pdfDir),
		linksFile: filepath.Clean(linksFile),
		debounce:  debounce,
	}, nil
}

// relevant reports whether the event should trigger a batch.
func (s *sourceWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == s.linksFile {
		return true
	}
	return filepath.Dir(name) == s.pdfDir && strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Run blocks until ctx is cancelled, calling trigger once per quiet period
// after relevant changes.
func (s *sourceWatcher) Run(ctx context.Context, trigger func()) error {
	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if !s.relevant(ev) {
				continue
			}
			logger.Debugw("Source change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(s.debounce)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("Watcher error", "error", err.Error())
		case <-timer.C:
			trigger()
		}
	}
}

func (s *sourceWatcher) Close() error {
	return s.watcher.Close()
}

func uniqueDirs(dirs ...string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
