package xtree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/fsnotify/fsnotify"
)

// WatchCallback 在后端文件变更并尝试重新加载后调用，err 表示重新加载是否成功。
type WatchCallback func(doc *Document, err error)

// Watcher 监视文档的后端文件，变更时调用 [Document.Reload]。
//
// 重新加载和回调都在监视器自己的 goroutine 中执行。Document 不是并发安全的，
// 调用方需保证监视期间对文档的其他访问与回调串行化（例如在回调内加锁处理）。
// 重新加载会丢弃内存中未保存的修改。
type Watcher struct {
	doc      *Document
	watcher  *fsnotify.Watcher
	callback WatchCallback
	opts     *watchOptions
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
	stopped  bool
	timer    *time.Timer // debounce 定时器，Stop() 时需要取消
}

// WatchOption 监视器配置选项。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce   time.Duration
	attempts   uint
	retryDelay time.Duration
}

func defaultWatchOptions() *watchOptions {
	return &watchOptions{
		debounce:   100 * time.Millisecond,
		attempts:   3,
		retryDelay: 50 * time.Millisecond,
	}
}

// WithDebounce 设置防抖时间，时间窗口内的多次变更只触发一次重新加载。
// 默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// WithReloadRetry 设置重新加载的总尝试次数和间隔。
// 写入方不使用原子替换时，读到写了一半的文件会导致解析失败，重试可以跨过这个窗口。
// 默认 3 次、间隔 50ms；attempts 为 0 时保持默认值。
func WithReloadRetry(attempts uint, delay time.Duration) WatchOption {
	return func(o *watchOptions) {
		if attempts > 0 {
			o.attempts = attempts
		}
		o.retryDelay = delay
	}
}

// Watch 创建 doc 后端文件的监视器。
//
// doc 必须关联了后端文件，否则返回 [ErrNoBackingFile]。
// 返回的 Watcher 需要调用 Start 或 StartAsync 开始监视，Stop 停止监视。
//
// 示例:
//
//	w, err := xtree.Watch(doc, func(d *xtree.Document, err error) {
//	    mu.Lock()
//	    defer mu.Unlock()
//	    if err != nil {
//	        log.Printf("reload failed: %v", err)
//	    }
//	})
//	if err != nil {
//	    return err
//	}
//	w.StartAsync()
//	defer w.Stop()
func Watch(doc *Document, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if doc == nil || doc.Path() == "" {
		return nil, ErrNoBackingFile
	}

	options := defaultWatchOptions()
	for _, opt := range opts {
		opt(options)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xtree: failed to create watcher: %w", err)
	}

	// 监视所在目录而非文件本身：原子替换（包括本包的 Save）会换掉文件的 inode
	dir := filepath.Dir(doc.Path())
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("xtree: failed to watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		doc:      doc,
		watcher:  fsWatcher,
		callback: callback,
		opts:     options,
		logger:   doc.opts.logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start 启动监视，阻塞直到 Stop 被调用。
func (w *Watcher) Start() {
	if !w.markRunning() {
		return
	}
	w.run()
}

// StartAsync 在后台 goroutine 中启动监视并立即返回。
func (w *Watcher) StartAsync() {
	if !w.markRunning() {
		return
	}
	go w.run()
}

// Stop 停止监视并释放底层 fsnotify 资源。可以在回调中调用，重复调用无副作用。
// Stop 之后不会再开始新的重新加载，已在执行的回调会继续完成。停止后的 Watcher 不能再次启动。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	w.cancel()
	w.running = false
	return w.watcher.Close()
}

func (w *Watcher) markRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopped {
		return false
	}
	w.running = true
	return true
}

func (w *Watcher) run() {
	filename := filepath.Base(w.doc.Path())

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.handleError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	// Write: 原地修改；Create: 原子替换后的新文件；Rename: 编辑器的临时文件改名
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.ctx.Done():
		return
	default:
	}

	err := retry.New(
		retry.Attempts(w.opts.attempts),
		retry.Delay(w.opts.retryDelay),
		retry.LastErrorOnly(true),
		retry.Context(w.ctx),
	).Do(func() error {
		_, err := w.doc.Reload()
		return err
	})
	if err != nil && w.ctx.Err() != nil {
		return
	}
	if err != nil {
		w.logger.Warn("xtree: reload after change failed",
			slog.String("path", w.doc.Path()), slog.Any("error", err))
	}
	if w.callback != nil {
		w.callback(w.doc, err)
	}
}

func (w *Watcher) handleError(err error) {
	if w.callback != nil {
		w.callback(w.doc, fmt.Errorf("xtree: watch error: %w", err))
	}
}
