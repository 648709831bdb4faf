package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/config"
)

// ErrRootNotFound is returned by FindRoot when no vault marker exists above
// the start directory.
var ErrRootNotFound = errors.New("vault root not found")

// FindRoot walks up from startDir looking for a vault: a directory holding the
// system directory or the configuration file. It returns the absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for dir := abs; ; {
		if exists(dir, fs.DefaultSystemDir) || exists(dir, config.DefaultFile) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
