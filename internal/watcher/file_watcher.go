package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileHandler 清单文件处理函数
type FileHandler func(ctx context.Context, filePath string) error

// Options 监控参数
type Options struct {
	Pattern      string        // 文件匹配模式，默认 "*.json"
	Debounce     time.Duration // 同一文件的事件合并时间
	PollInterval time.Duration // 检查文件写入完成的间隔
	ScanExisting bool          // 启动时处理目录中已有的文件
}

// FileWatcher 应用清单目录监控，新文件写入完成后交给 handler
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	watchDir string
	opts     Options
	handler  FileHandler
	logger   *logrus.Logger

	mu         sync.Mutex
	timers     map[string]*time.Timer
	processing map[string]bool
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopChan   chan struct{}
}

// NewFileWatcher 创建文件监控器，目录不存在时创建
func NewFileWatcher(watchDir string, opts Options, handler FileHandler, logger *logrus.Logger) (*FileWatcher, error) {
	if opts.Pattern == "" {
		opts.Pattern = "*.json"
	}
	if _, err := filepath.Match(opts.Pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", opts.Pattern, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}

	if err := os.MkdirAll(watchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(watchDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to add watch directory: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"watch_dir": watchDir,
		"pattern":   opts.Pattern,
		"debounce":  opts.Debounce,
	}).Info("Inventory watcher created")

	return &FileWatcher{
		watcher:    w,
		watchDir:   watchDir,
		opts:       opts,
		handler:    handler,
		logger:     logger,
		timers:     make(map[string]*time.Timer),
		processing: make(map[string]bool),
		stopChan:   make(chan struct{}),
	}, nil
}

// Start 启动事件循环
func (fw *FileWatcher) Start(ctx context.Context) error {
	if fw.opts.ScanExisting {
		if err := fw.scanExistingFiles(ctx); err != nil {
			fw.logger.WithError(err).Warn("Failed to scan existing inventory files")
		}
	}

	go fw.eventLoop(ctx)

	fw.logger.Info("Inventory watcher started")
	return nil
}

func (fw *FileWatcher) scanExistingFiles(ctx context.Context) error {
	entries, err := os.ReadDir(fw.watchDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !fw.matchPattern(entry.Name()) {
			continue
		}
		fw.logger.WithField("file", entry.Name()).Info("Found existing inventory file")
		fw.schedule(ctx, filepath.Join(fw.watchDir, entry.Name()))
	}
	return nil
}

func (fw *FileWatcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopChan:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				fw.logger.Warn("Watcher events channel closed")
				return
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !fw.matchPattern(filepath.Base(event.Name)) {
				continue
			}

			fw.logger.WithFields(logrus.Fields{
				"event": event.Op.String(),
				"file":  filepath.Base(event.Name),
			}).Debug("Inventory file event detected")

			fw.schedule(ctx, event.Name)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.WithError(err).Error("Watcher error")
		}
	}
}

// schedule 防抖：最后一次事件之后 Debounce 时间才处理
func (fw *FileWatcher) schedule(ctx context.Context, filePath string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if timer, exists := fw.timers[filePath]; exists {
		timer.Stop()
	}
	fw.timers[filePath] = time.AfterFunc(fw.opts.Debounce, func() {
		fw.mu.Lock()
		delete(fw.timers, filePath)
		fw.mu.Unlock()

		fw.wg.Add(1)
		defer fw.wg.Done()
		fw.handleFile(ctx, filePath)
	})
}

func (fw *FileWatcher) handleFile(ctx context.Context, filePath string) {
	fw.mu.Lock()
	if fw.processing[filePath] {
		fw.mu.Unlock()
		fw.logger.WithField("file", filePath).Debug("Inventory file is already being processed")
		return
	}
	fw.processing[filePath] = true
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		delete(fw.processing, filePath)
		fw.mu.Unlock()
	}()

	log := fw.logger.WithField("file", filePath)

	if err := fw.waitForFileReady(ctx, filePath); err != nil {
		log.WithError(err).Error("Inventory file not ready")
		return
	}

	log.Info("Processing inventory file")
	if err := fw.handler(ctx, filePath); err != nil {
		log.WithError(err).Error("Failed to process inventory file")
		return
	}
	log.Info("Inventory file processed")
}

// waitForFileReady 文件大小连续两次相同且非空视为写入完成
func (fw *FileWatcher) waitForFileReady(ctx context.Context, filePath string) error {
	const maxAttempts = 10

	var lastSize int64 = -1
	for i := 0; i < maxAttempts; i++ {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file does not exist")
			}
			return err
		}

		if info.Size() > 0 && info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(fw.opts.PollInterval):
		}
	}

	return fmt.Errorf("file not ready after %d attempts", maxAttempts)
}

func (fw *FileWatcher) matchPattern(fileName string) bool {
	ok, _ := filepath.Match(strings.ToLower(fw.opts.Pattern), strings.ToLower(fileName))
	return ok
}

// Stop 停止监控并等待正在处理的文件
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.logger.Info("Stopping inventory watcher")
		close(fw.stopChan)

		fw.mu.Lock()
		for path, timer := range fw.timers {
			timer.Stop()
			delete(fw.timers, path)
		}
		fw.mu.Unlock()

		err = fw.watcher.Close()
		fw.wg.Wait()
	})
	return err
}

// GetWatchDir 获取监控目录
func (fw *FileWatcher) GetWatchDir() string {
	return fw.watchDir
}
