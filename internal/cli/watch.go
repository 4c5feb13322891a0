package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDelay = 200 * time.Millisecond

// watch calls run, then calls it again whenever a .proto file changes in one
// of the directories it returned, until ctx is done. Failures of run are
// reported and watching continues, so a schema can be fixed in place.
func (a *App) watch(ctx context.Context, run func() ([]string, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]bool)
	regenerate := func() {
		dirs, err := run()
		if err != nil {
			a.printError(err)
			return
		}
		for _, dir := range dirs {
			if watched[dir] {
				continue
			}
			if err := w.Add(dir); err != nil {
				a.printError(fmt.Errorf("watch %s: %w", dir, err))
				continue
			}
			watched[dir] = true
			a.logger.Debug("watching directory", "dir", dir)
		}
	}
	regenerate()
	if len(watched) == 0 {
		return fmt.Errorf("nothing to watch")
	}

	timer := time.NewTimer(watchDelay)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".proto" || event.Op == fsnotify.Chmod {
				continue
			}
			a.logger.Debug("proto changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(watchDelay)
		case <-timer.C:
			regenerate()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.printError(fmt.Errorf("watch: %w", err))
		}
	}
}
