package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ritzau/netview/pkg/logging"
	"github.com/ritzau/netview/pkg/model"
	"github.com/ritzau/netview/pkg/view"
)

// Target receives reloaded networks; *view.View implements it
type Target interface {
	Load(resp *model.NetworkResponse, mode view.Mode) error
}

// Reloader loads a network JSON file into a target
type Reloader struct {
	path   string
	mode   string
	target Target
}

// NewReloader creates a reloader. mode is a view.ParseMode name; empty infers
// it from each loaded response.
func NewReloader(path, mode string, target Target) *Reloader {
	return &Reloader{path: path, mode: mode, target: target}
}

// Reload reads the file and replaces the target's network
func (r *Reloader) Reload() error {
	resp, err := model.ReadNetworkFile(r.path)
	if err != nil {
		return err
	}
	mode, err := view.ParseMode(r.mode, resp)
	if err != nil {
		return err
	}
	if err := r.target.Load(resp, mode); err != nil {
		return fmt.Errorf("failed to load %s: %w", r.path, err)
	}
	logging.Info("network reloaded", "path", r.path, "nodes", len(resp.Nodes), "mode", mode.String())
	return nil
}

// Run reloads on every write event until events closes or ctx is done. A
// file that fails to parse keeps the current network on screen.
func (r *Reloader) Run(ctx context.Context, events <-chan ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			switch event.Type {
			case ChangeTypeRemove:
				logging.Warn("network file removed, keeping current network", "path", r.path)
			case ChangeTypeWrite:
				if err := r.Reload(); err != nil {
					logging.Warn("reload failed, keeping current network", "path", r.path, "error", err)
				}
			}
		}
	}
}

// Watch reloads path into target whenever the file changes. It blocks until
// ctx is done.
func Watch(ctx context.Context, path, mode string, target Target, quietPeriod, maxWait time.Duration) error {
	fw, err := NewFileWatcher(path)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	return NewReloader(path, mode, target).Run(ctx, debouncer.Output())
}
