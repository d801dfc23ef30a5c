/*
 * Copyright (c) 2026. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZVC project.
 *
 * MZVC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package config

import (
	"path/filepath"
	"time"

	"github.com/antst/mzvc/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const watchSettle = 500 * time.Millisecond

// Watcher reloads the config file on change and hands the validated result
// to the supplied callback. A file that fails to parse or validate is
// rejected and the running configuration stays in force.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	done chan struct{}
}

func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config watcher")
	}
	// Watch the directory: editors replace the file, which drops a watch
	// placed on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, "config watcher for `%v`", path)
	}

	w := &Watcher{fsw: fsw, path: path, done: make(chan struct{})}
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func(*Config)) {
	var settle *time.Timer
	settleC := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Editors produce bursts of events; settle before reloading.
			if settle != nil {
				settle.Stop()
			}
			settle = time.AfterFunc(watchSettle, func() {
				select {
				case settleC <- struct{}{}:
				default:
				}
			})
		case <-settleC:
			cfg, err := Load(w.path)
			if err != nil {
				logger.L().Errorf("Rejected config reload from `%v`: %v", w.path, err)
				continue
			}
			logger.L().Infof("Configuration reloaded from `%v`", w.path)
			onChange(cfg)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.L().Errorf("Config watcher: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() {
	close(w.done)
	if err := w.fsw.Close(); err != nil {
		logger.L().Errorf("Closing config watcher: %v", err)
	}
}
