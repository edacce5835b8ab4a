package suite

import (
	"context"
	"io/fs"
	"path/filepath"
)

// Discoverer yields every file beneath a root directory.
type Discoverer interface {
	Discover(ctx context.Context, root string, visit func(path string) error) error
}

// WalkDiscoverer walks the file system in lexical order, so repeated runs
// see fixtures in the same order.
type WalkDiscoverer struct{}

// Discover calls visit for every regular file under root. A visit error
// stops the walk and is returned.
func (WalkDiscoverer) Discover(ctx context.Context, root string, visit func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		return visit(path)
	})
}

// ListDiscoverer yields a fixed list of paths, ignoring root.
type ListDiscoverer []string

func (l ListDiscoverer) Discover(ctx context.Context, _ string, visit func(path string) error) error {
	for _, path := range l {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(path); err != nil {
			return err
		}
	}
	return nil
}
