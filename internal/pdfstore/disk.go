package pdfstore

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/keithlinneman/jslearn-web/internal/pathutil"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// DiskStore serves files from a single flat directory. The directory is
// opened per request as an os.Root so names can never resolve outside it,
// and a directory created after startup is picked up without a restart.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) Kind() string { return "disk" }

func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Open(ctx context.Context, name string) (*File, error) {
	if !validName(name) {
		return nil, xerrors.Wrapf(ErrFileMissing, "invalid name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.Wrapf(ErrFileMissing, "modules dir %s", s.dir)
		}
		return nil, xerrors.Wrapf(err, "open modules dir %s", s.dir)
	}
	// files opened from a root stay valid after the root is closed
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.Wrapf(ErrFileMissing, "%s", name)
		}
		return nil, xerrors.Wrapf(err, "open %s", name)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, xerrors.Wrapf(err, "stat %s", name)
	}
	if info.IsDir() {
		f.Close()
		return nil, xerrors.Wrapf(ErrFileMissing, "%s is a directory", name)
	}

	return &File{
		Name:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Body:    f,
	}, nil
}

// Ensure creates the directory if it does not exist. Returns true when it
// was created.
func (s *DiskStore) Ensure() (bool, error) {
	info, err := os.Stat(s.dir)
	if err == nil {
		if !info.IsDir() {
			return false, xerrors.Newf("%s exists and is not a directory", s.dir)
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, xerrors.Wrapf(err, "stat %s", s.dir)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, xerrors.Wrapf(err, "create %s", s.dir)
	}
	return true, nil
}

func validName(name string) bool { return pathutil.IsFlatName(name) }
