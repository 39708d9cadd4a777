package ui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

type reloadMsg struct{}

func newWatcher() *fsnotify.Watcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
		return nil
	}
	return w
}

// watchFile waits for path to be written. Editors that replace the file
// show up as a create in the parent directory, so the directory is watched.
func watchFile(w *fsnotify.Watcher, path string) tea.Cmd {
	if w == nil || path == "" {
		return nil
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	return func() tea.Msg {
		if err := w.Add(dir); err != nil {
			log.Error("error adding dir to fsnotify watcher", "error", err)
			return nil
		}
		log.Info("fsnotify watching dir", "dir", dir)

		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
				return reloadMsg{}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				log.Debug("fsnotify error", "dir", dir, "error", err)
			}
		}
	}
}
