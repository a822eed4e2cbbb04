// Package filecache stores cache snapshots as YAML files on local disk.
//
// Layout:
//
//	{Dir}/
//	  {target}/
//	    {hash[0:2]}/
//	      {hash}.yaml
//
// Writes go to a temp file in the destination directory and are renamed into
// place, so a crash never leaves a partial snapshot at the canonical path.
package filecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/cache"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// Store implements cache.Store on the filesystem.
type Store struct {
	Dir string

	locks sync.Map // Key: entry path, Value: *sync.Mutex
}

var _ cache.Store = (*Store)(nil)

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) entryPath(target, hash string) (string, error) {
	if len(hash) < 2 {
		return "", fmt.Errorf("invalid cache hash %q", hash)
	}
	if target == "" || target != filepath.Base(target) {
		return "", fmt.Errorf("invalid target name for cache entry %q", target)
	}
	return filepath.Join(s.Dir, target, hash[:2], hash+".yaml"), nil
}

func (s *Store) lock(path string) func() {
	v, _ := s.locks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Store) Get(ctx context.Context, target, hash string) (*cache.Snapshot, bool, error) {
	path, err := s.entryPath(target, hash)
	if err != nil {
		return nil, false, err
	}
	unlock := s.lock(path)
	defer unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	snap, err := cache.Unmarshal(data)
	if err != nil {
		// A damaged entry is a miss; the next successful build overwrites it.
		ctxlog.FromContext(ctx).Warn("Ignoring unreadable cache entry.", "path", path, "error", err)
		return nil, false, nil
	}
	return snap, true, nil
}

func (s *Store) Put(ctx context.Context, target, hash string, snap *cache.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cache snapshot is nil")
	}
	path, err := s.entryPath(target, hash)
	if err != nil {
		return err
	}
	data, err := cache.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	unlock := s.lock(path)
	defer unlock()
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Cache entry written.", "path", path)
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	committed = true
	return nil
}
