package main

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"
)

// lookupLimit bounds concurrent PATH lookups.
const lookupLimit = 8

// resolveAll looks up every distinct executable concurrently and returns a
// map from the name used in the job file to its resolved path. The first
// executable that cannot be found fails the whole call.
func resolveAll(ctx context.Context, names []string, lookPath func(string) (string, error)) (map[string]string, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var mu sync.Mutex
	resolved := make(map[string]string, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)

	for _, name := range names {
		mu.Lock()
		_, dup := resolved[name]
		resolved[name] = ""
		mu.Unlock()
		if dup {
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := lookPath(name)
			if err != nil {
				return fmt.Errorf("resolving %q: %w", name, err)
			}
			mu.Lock()
			resolved[name] = path
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}
