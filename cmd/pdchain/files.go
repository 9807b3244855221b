package main

import (
	"errors"
	"os"
	"slices"
	"sync"

	"github.com/boyter/gocodewalker"

	"github.com/rlch/pdchain/watch"
)

// ErrNoRequestFiles is returned when discovery finds nothing to render.
var ErrNoRequestFiles = errors.New("no .chain.yaml files found")

// collectRequestFiles expands args into request files. Directories are
// walked respecting .gitignore; files named explicitly are kept whatever
// their extension.
func collectRequestFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		found, err := walkDir(arg)
		if err != nil {
			return nil, err
		}

		slices.Sort(found)
		files = append(files, found...)
	}

	if len(files) == 0 {
		return nil, ErrNoRequestFiles
	}

	return files, nil
}

// walkDir walks a directory for request files, respecting .gitignore.
func walkDir(root string) ([]string, error) {
	fileListQueue := make(chan *gocodewalker.File, 100)

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)

	var walkErr error
	fileWalker.SetErrorHandler(func(e error) bool {
		walkErr = e
		return true
	})

	var (
		wg    sync.WaitGroup
		files []string
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for f := range fileListQueue {
			if watch.IsRequestFile(f.Location) {
				files = append(files, f.Location)
			}
		}
	}()

	if err := fileWalker.Start(); err != nil {
		return nil, err
	}

	wg.Wait()

	return files, walkErr
}
