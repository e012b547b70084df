package syncer

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher reports settled document files in the shared folder. Removals are
// ignored because deletions are never propagated.
type watcher struct {
	dir       string
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func newWatcher(dir string, delay time.Duration, onChange func(path string)) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &watcher{
		dir:       dir,
		watcher:   fw,
		debouncer: newDebouncer(delay, onChange),
		stopChan:  make(chan struct{}),
	}, nil
}

// Start begins watching the shared folder, creating it if needed
func (w *watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.watcher.Close()
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.watcher.Close()
		return err
	}

	w.wg.Add(1)
	go w.eventLoop()

	logger.Info().Str("dir", w.dir).Msg("watching sync directory")
	return nil
}

// Stop halts the event loop and drops pending events
func (w *watcher) Stop() {
	w.stopOnce.Do(func() {
		w.debouncer.Stop()
		close(w.stopChan)
		w.watcher.Close()
		w.wg.Wait()
	})
}

func (w *watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("sync watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !isDocumentFile(filepath.Base(event.Name)) {
		return
	}
	w.debouncer.Queue(event.Name)
}
