// Package snippetstage copies a snippet file into a staging directory
// before handing it to the (out-of-core) sandboxed parser adapter,
// mirroring the original Python implementation's
// shutil.copyfile-before-parse step. It reuses the teacher's vendored
// copy helper (project_manager.go / vcs_source.go's shutil.CopyTree
// checkout path), generalized from "check out a VCS tree" to "stage one
// file."
package snippetstage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

// Stage copies the snippet at srcPath into dir, under its own basename,
// and returns the staged path. dir is created if absent.
func Stage(srcPath, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating staging dir %s", dir)
	}
	dst := filepath.Join(dir, filepath.Base(srcPath))
	if err := shutil.CopyFile(srcPath, dst, false); err != nil {
		return "", errors.Wrapf(err, "staging %s to %s", srcPath, dst)
	}
	return dst, nil
}

// Cleanup removes a file staged by Stage. Failure to remove is not
// fatal to the calling inference run, so callers may ignore the error
// if they only clean up best-effort.
func Cleanup(stagedPath string) error {
	if stagedPath == "" {
		return nil
	}
	if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing staged snippet %s", stagedPath)
	}
	return nil
}
