package main

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// watch calls solve once and then again after every write to path,
// until ctx is done. Failures of solve are logged, not returned. The
// parent directory is watched so that replacing the file counts too.
func watch(ctx context.Context, log logrus.FieldLogger, path string, solve func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer w.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "watching %s", path)
	}

	run := func() {
		if err := solve(); err != nil {
			log.WithError(err).Error("solve failed")
		}
	}
	run()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.WithField("op", ev.Op.String()).Info("description changed")
			run()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("file watcher error")
		}
	}
}
