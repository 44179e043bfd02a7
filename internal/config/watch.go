package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"logscope/internal/util/logx"
)

const reloadDebounce = 150 * time.Millisecond

// Watch calls onChange after path is written, created or replaced, until
// ctx is cancelled. The parent directory is watched so that editors that
// save through a rename are noticed. Bursts of events are coalesced.
func Watch(ctx context.Context, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return err
	}

	go func() {
		defer fsw.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(reloadDebounce, onChange)
				} else {
					timer.Reset(reloadDebounce)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logx.Warnf("config: watch %s: %v", abs, err)
			}
		}
	}()
	logx.Infof("config: watching %s", abs)
	return nil
}
