// Package consume watches the consume directory and imports new files as
// documents. Each scan that imports at least one document publishes on the
// consumption-finished signal, which the document list treats as a pure
// refresh.
package consume

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paperdeck/paperdeck/internal/events"
	"github.com/paperdeck/paperdeck/internal/store"
	"github.com/paperdeck/paperdeck/internal/textutil"
)

// Importer is the store surface the consumer needs.
type Importer interface {
	HasDocumentWithSource(path string) (bool, error)
	AddDocument(doc *store.Document) (int64, error)
}

// Consumer scans a directory for new files on a cron schedule or on
// demand.
type Consumer struct {
	dir    string
	store  Importer
	signal *events.Signal
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup
}

// New creates a consumer over the given directory.
func New(dir string, importer Importer, signal *events.Signal, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		dir:    dir,
		store:  importer,
		signal: signal,
		logger: logger,
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
	}
}

// Start schedules periodic scans with the given cron expression and runs
// one scan immediately. An empty expression disables the schedule.
func (c *Consumer) Start(schedule string) error {
	if schedule != "" {
		if _, err := c.cron.AddFunc(schedule, func() {
			if err := c.TriggerScan(); err != nil {
				c.logger.Error("scheduled scan failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
		}
		c.cron.Start()
		c.logger.Info("consume schedule started", "dir", c.dir, "schedule", schedule)
	}
	return c.TriggerScan()
}

// TriggerScan runs one scan now. Returns an error if a scan is already in
// progress or the consumer is stopped.
func (c *Consumer) TriggerScan() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("consumer is stopped")
	}
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("scan already running")
	}
	c.running = true
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()
	return c.scan()
}

// Stop halts the schedule and waits for an in-flight scan to finish.
func (c *Consumer) Stop() context.Context {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	cronCtx := c.cron.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		c.wg.Wait()
		cancel()
	}()
	return ctx
}

func (c *Consumer) scan() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read consume dir: %w", err)
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		ok, err := c.importFile(path, entry)
		if err != nil {
			c.logger.Error("import failed", "path", path, "error", err)
			continue
		}
		if ok {
			imported++
		}
	}

	if imported > 0 {
		c.logger.Info("consumption finished", "imported", imported)
		c.signal.Publish()
	}
	return nil
}

// importFile imports one file unless it was already consumed. Returns true
// when a document was created.
func (c *Consumer) importFile(path string, entry os.DirEntry) (bool, error) {
	seen, err := c.store.HasDocumentWithSource(path)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	info, err := entry.Info()
	if err != nil {
		return false, err
	}

	doc := &store.Document{
		Title:      titleFromFilename(entry.Name()),
		SourcePath: path,
		Created:    info.ModTime().UTC(),
		Added:      time.Now().UTC(),
	}
	if content, ok := readTextContent(path); ok {
		doc.Content = content
	}

	if _, err := c.store.AddDocument(doc); err != nil {
		return false, err
	}
	c.logger.Debug("document imported", "title", doc.Title, "path", path)
	return true, nil
}

// titleFromFilename strips the extension and normalizes separators.
func titleFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}

// readTextContent returns the file body for plain-text formats so they are
// full-text searchable. Binary formats get no inline content.
func readTextContent(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".csv":
	default:
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return textutil.EnsureUTF8(string(data)), true
}
