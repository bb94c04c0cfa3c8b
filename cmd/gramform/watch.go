package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchFiles evaluates formula, then evaluates it again every time tag or value file is written.
// Directories are watched instead of files, since editors often replace files.
func watchFiles(ctx context.Context, tagFile, formula string) error {
	watcher, e := fsnotify.NewWatcher()
	if e != nil {
		return e
	}
	defer watcher.Close()

	files := map[string]bool{}
	for _, name := range []string{tagFile, valueFile} {
		if name == "" {
			continue
		}

		abs, e := filepath.Abs(name)
		if e != nil {
			return e
		}

		files[abs] = true
		if e := watcher.Add(filepath.Dir(abs)); e != nil {
			return e
		}
	}

	report := func() {
		res, e := evaluate(tagFile, formula)
		if e != nil {
			log.Println(e.Error())
		} else {
			fmt.Print(res)
		}
	}
	report()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if relevant(event, files) {
				fmt.Printf("--- %s changed\n", event.Name)
				report()
			}

		case e, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", e)
		}
	}
}

func relevant(event fsnotify.Event, files map[string]bool) bool {
	abs, e := filepath.Abs(event.Name)
	if e != nil || !files[abs] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
