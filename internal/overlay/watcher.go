package overlay

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports edits to dataset files in a directory. Changes are
// delivered on a channel so the update loop can reload at a frame boundary.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan string
	done    chan struct{}
	log     zerolog.Logger
}

func NewWatcher(dir string, log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("overlay: watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("overlay: watch %s: %w", dir, err)
	}
	w := &Watcher{
		watcher: fw,
		changes: make(chan string, 16),
		done:    make(chan struct{}),
		log:     log.With().Str("component", "overlay-watch").Logger(),
	}
	go w.loop()
	return w, nil
}

// Changes yields the path of every dataset file written or created.
func (w *Watcher) Changes() <-chan string { return w.changes }

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasPrefix(base, "dataAmenities_") || !strings.HasSuffix(base, ".csv") {
				continue
			}
			select {
			case w.changes <- ev.Name:
			default:
				// A reload is already pending.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
