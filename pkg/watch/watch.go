// Package watch adapts filesystem notifications into document lifecycle
// events for files that live outside the project tree.
package watch

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/albertocavalcante/virtdoc/pkg/docevent"
)

// Source watches paths on disk and republishes create/write/remove as
// docevent Created/Changed/Deleted with file URIs.
type Source struct {
	fsWatcher *fsnotify.Watcher
	logger    *zap.Logger

	// filter restricts which paths produce events; nil accepts all.
	filter func(path string) bool

	events chan docevent.Event
	errs   chan error
	done   chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// WithFilter restricts events to paths accepted by fn.
func WithFilter(fn func(path string) bool) Option {
	return func(s *Source) { s.filter = fn }
}

// NewSource creates a watch source. Failing to create the OS watcher is
// fatal: the source cannot function without it.
func NewSource(opts ...Option) (*Source, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	s := &Source{
		fsWatcher: fsWatcher,
		events:    make(chan docevent.Event, 100),
		errs:      make(chan error, 10),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	go s.run()

	return s, nil
}

// Add watches a file or directory.
func (s *Source) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := s.fsWatcher.Add(abs); err != nil {
		return fmt.Errorf("watching %s: %w", abs, err)
	}
	return nil
}

// Remove stops watching a file or directory.
func (s *Source) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return s.fsWatcher.Remove(abs)
}

// Events returns the channel of document events.
func (s *Source) Events() <-chan docevent.Event { return s.events }

// Errors returns the channel of watcher errors.
func (s *Source) Errors() <-chan error { return s.errs }

// Close stops the source and releases the OS watcher.
func (s *Source) Close() error {
	close(s.done)
	return s.fsWatcher.Close()
}

// run processes filesystem events until Close.
func (s *Source) run() {
	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.fsWatcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errs <- err:
			default:
				s.logger.Warn("dropping watcher error", zap.Error(err))
			}
		}
	}
}

func (s *Source) handleEvent(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if s.filter != nil && !s.filter(abs) {
		return
	}

	var kind docevent.Kind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = docevent.Created
	case event.Op&fsnotify.Write != 0:
		kind = docevent.Changed
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		kind = docevent.Deleted
	default:
		// Chmod and friends carry no content change.
		return
	}

	e := docevent.Event{Kind: kind, URI: uri.File(abs)}
	select {
	case s.events <- e:
	case <-s.done:
	}
}
