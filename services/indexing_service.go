package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// settleDelay is how long a file must stay quiet before it is ingested, so a
// copy in progress is not read half written.
const settleDelay = 750 * time.Millisecond

// InboxWatcher feeds PDFs dropped into a directory through the same Ingest
// path as uploads.
type InboxWatcher struct {
	files      *InboxFiles
	ragService RAGService
	settle     time.Duration

	mu   sync.Mutex
	seen map[string]bool // content hashes already ingested
}

func NewInboxWatcher(files *InboxFiles, ragService RAGService) *InboxWatcher {
	return &InboxWatcher{
		files:      files,
		ragService: ragService,
		settle:     settleDelay,
		seen:       make(map[string]bool),
	}
}

// Run ingests the newest PDF already in the inbox, then watches for new ones
// until ctx is cancelled.
func (w *InboxWatcher) Run(ctx context.Context) {
	w.ScanNewest(ctx)
	w.WatchDirectory(ctx)
}

// ScanNewest ingests the most recent PDF present at start-up. Older files are
// left alone since only one report is held at a time.
func (w *InboxWatcher) ScanNewest(ctx context.Context) {
	log.Info().Str("dir", w.files.Dir).Msg("INDEXER: scanning inbox")
	path, ok, err := w.files.Newest()
	if err != nil {
		log.Error().Err(err).Str("dir", w.files.Dir).Msg("INDEXER: could not list inbox")
		return
	}
	if !ok {
		log.Info().Msg("INDEXER: inbox is empty")
		return
	}
	w.processFile(ctx, path)
}

// WatchDirectory blocks, ingesting every created or rewritten PDF.
func (w *InboxWatcher) WatchDirectory(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("WATCHER: failed to create file watcher")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.files.Dir); err != nil {
		log.Error().Err(err).Str("dir", w.files.Dir).Msg("WATCHER: failed to add path to watcher")
		return
	}
	log.Info().Str("dir", w.files.Dir).Msg("WATCHER: watching inbox")

	ready := make(chan string)
	var timersMu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		timersMu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		timersMu.Unlock()
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isSupportedFile(event.Name) || filepath.Dir(event.Name) != w.files.Dir {
				continue
			}
			// editors and copies emit several Create/Write events per file
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			log.Debug().Str("event", event.String()).Msg("WATCHER: event")
			path := event.Name
			timersMu.Lock()
			if t, ok := timers[path]; ok {
				t.Reset(w.settle)
			} else {
				timers[path] = time.AfterFunc(w.settle, func() {
					timersMu.Lock()
					delete(timers, path)
					timersMu.Unlock()
					select {
					case ready <- path:
					case <-ctx.Done():
					}
				})
			}
			timersMu.Unlock()

		case path := <-ready:
			w.processFile(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("WATCHER: error")

		case <-ctx.Done():
			log.Info().Msg("WATCHER: context cancelled, shutting down watcher")
			return
		}
	}
}

func (w *InboxWatcher) processFile(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// already moved away by an earlier event
		return
	}
	hash, err := calculateFileHash(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("INDEXER: could not hash file")
		return
	}

	w.mu.Lock()
	dup := w.seen[hash]
	w.mu.Unlock()
	if dup {
		log.Info().Str("file", path).Msg("INDEXER: file unchanged, skipping")
		w.move(path, true)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("INDEXER: could not read file")
		return
	}
	chunks, err := w.ragService.Ingest(ctx, Upload{Filename: filepath.Base(path), Data: data})
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("INDEXER: failed to ingest file")
		w.move(path, false)
		return
	}

	w.mu.Lock()
	w.seen[hash] = true
	w.mu.Unlock()
	log.Info().Str("file", path).Int("chunks", chunks).Msg("INDEXER: ingested inbox file")
	w.move(path, true)
}

func (w *InboxWatcher) move(path string, ok bool) {
	var dst string
	var err error
	if ok {
		dst, err = w.files.MarkProcessed(path)
	} else {
		dst, err = w.files.MarkFailed(path)
	}
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("INDEXER: could not move file")
		return
	}
	log.Debug().Str("from", path).Str("to", dst).Msg("INDEXER: moved file")
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
