// Copyright 2024 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/abcxyz/pkg/logging"

	"github.com/ffizer/ffizer/internal/model"
)

const (
	// OwnerRWXPerms is rwx------ .
	OwnerRWXPerms = 0o700
	// OwnerRWPerms is rw------- .
	OwnerRWPerms = 0o600
)

// FS abstracts filesystem operations so the pipeline can be tested against
// an in-memory filesystem instead of the real one.
//
// We can't use os.DirFS or fs.StatFS because they lack some methods we need.
type FS interface {
	fs.StatFS

	MkdirAll(string, os.FileMode) error
	MkdirTemp(string, string) (string, error)
	OpenFile(string, int, os.FileMode) (*os.File, error)
	ReadFile(string) ([]byte, error)
	Rename(string, string) error
	Remove(string) error
	RemoveAll(string) error
	WriteFile(string, []byte, os.FileMode) error
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)
	Lstat(name string) (fs.FileInfo, error)
}

// RealFS is the non-test implementation of FS, backed by the "os" package.
type RealFS struct{}

func (r *RealFS) MkdirAll(name string, perm os.FileMode) error { return os.MkdirAll(name, perm) } //nolint:wrapcheck
func (r *RealFS) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern) //nolint:wrapcheck
}
func (r *RealFS) Open(name string) (fs.File, error) { return os.Open(name) } //nolint:wrapcheck
func (r *RealFS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm) //nolint:wrapcheck
}
func (r *RealFS) ReadFile(name string) ([]byte, error)   { return os.ReadFile(name) }   //nolint:wrapcheck
func (r *RealFS) RemoveAll(name string) error            { return os.RemoveAll(name) }  //nolint:wrapcheck
func (r *RealFS) Remove(name string) error               { return os.Remove(name) }     //nolint:wrapcheck
func (r *RealFS) Rename(from, to string) error           { return os.Rename(from, to) } //nolint:wrapcheck
func (r *RealFS) Stat(name string) (fs.FileInfo, error)  { return os.Stat(name) }       //nolint:wrapcheck
func (r *RealFS) Lstat(name string) (fs.FileInfo, error) { return os.Lstat(name) }      //nolint:wrapcheck
func (r *RealFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm) //nolint:wrapcheck
}
func (r *RealFS) Symlink(oldname, newname string) error { return os.Symlink(oldname, newname) } //nolint:wrapcheck
func (r *RealFS) Readlink(name string) (string, error)  { return os.Readlink(name) }             //nolint:wrapcheck

// CopyParams groups the parameters to CopyRecursive.
type CopyParams struct {
	// BackupDirMaker is called on the first file that needs backing up. It
	// should create a directory and return its path.
	BackupDirMaker func(FS) (string, error)

	// DryRun skips writes, just checks that the copy would likely succeed.
	DryRun bool

	DstRoot string
	SrcRoot string
	FS      FS

	// Visitor is called for each file/dir in the source, letting the caller
	// customize the copy on a per-file basis (used by the path walker /
	// action classifier to skip ignored files, rename `.ffizer.yaml`'s
	// neighbors, etc.)
	Visitor CopyVisitor
}

// CopyVisitor is called by CopyRecursive for each file/directory found.
type CopyVisitor func(relPath string, de fs.DirEntry) (CopyHint, error)

// CopyHint influences how CopyRecursive treats one file or directory.
type CopyHint struct {
	// NewRelPath, if non-empty, renames the destination path (used for
	// rendering `{{...}}` path segments).
	NewRelPath string

	// Contents, if non-nil, replaces the file's contents (used for rendered
	// templates) instead of copying the source file's bytes.
	Contents []byte

	BackupIfExists   bool
	AllowPreexisting bool
	Skip             bool
}

// SymlinkForbiddenError reports a symlink found where symlinks are not
// allowed. CopyRecursive does not return it: it dereferences symlinks.
type SymlinkForbiddenError struct {
	Path string
}

func (e *SymlinkForbiddenError) Error() string {
	return fmt.Sprintf("a symlink was found at %q, but symlinks are forbidden here", e.Path)
}

// CopyRecursive recursively copies a directory to another directory,
// dereferencing symlinks (files referenced via a symlink are copied as
// regular files in the destination).
func CopyRecursive(ctx context.Context, pos *model.ConfigPos, p *CopyParams) (outErr error) {
	logger := logging.FromContext(ctx).With("logger", "CopyRecursive")

	backupDir := ""

	return fs.WalkDir(p.FS, p.SrcRoot, func(path string, de fs.DirEntry, err error) error { //nolint:wrapcheck
		if err != nil {
			return err
		}

		relToSrc, err := filepath.Rel(p.SrcRoot, path)
		if err != nil {
			return pos.Errorf("filepath.Rel(%s,%s): %w", p.SrcRoot, path, err)
		}

		var ch CopyHint
		if p.Visitor != nil {
			ch, err = p.Visitor(relToSrc, de)
			if err != nil {
				return err
			}
		}

		if ch.Skip {
			logger.DebugContext(ctx, "skipping path", "path", relToSrc)
			if de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		destRel := relToSrc
		if ch.NewRelPath != "" {
			destRel = ch.NewRelPath
		}
		dst := filepath.Join(p.DstRoot, destRel)

		if de.IsDir() {
			return nil
		}

		inDir := filepath.Dir(dst)
		if err := mkdirAllChecked(pos, p.FS, inDir, p.DryRun); err != nil {
			return err
		}

		dstInfo, err := p.FS.Stat(dst)
		if err == nil {
			if dstInfo.IsDir() {
				return pos.Errorf("cannot overwrite a directory with a file of the same name; destination is %q", dst)
			}
			if !ch.AllowPreexisting {
				return pos.Errorf("destination file %s already exists and overwriting was not enabled", destRel)
			}
			if ch.BackupIfExists && !p.DryRun {
				if backupDir == "" {
					if backupDir, err = p.BackupDirMaker(p.FS); err != nil {
						return fmt.Errorf("failed making backup directory: %w", err)
					}
				}
				if err := backUp(ctx, p.FS, backupDir, p.DstRoot, destRel); err != nil {
					return err
				}
			}
		} else if !IsNotExistErr(err) {
			return pos.Errorf("Stat(): %w", err)
		}

		if ch.Contents != nil {
			if p.DryRun {
				return nil
			}
			mode := OwnerRWPerms
			if fi, statErr := p.FS.Stat(path); statErr == nil {
				mode = int(fi.Mode().Perm())
			}
			if err := p.FS.WriteFile(dst, ch.Contents, os.FileMode(mode)); err != nil {
				return pos.Errorf("WriteFile(): %w", err)
			}
			return nil
		}

		return CopyFile(ctx, pos, p.FS, path, dst, p.DryRun)
	})
}

// CopyFile copies the contents of src to dst, preserving src's mode bits.
func CopyFile(ctx context.Context, pos *model.ConfigPos, rfs FS, src, dst string, dryRun bool) (outErr error) {
	logger := logging.FromContext(ctx).With("logger", "CopyFile")

	srcInfo, err := rfs.Stat(src) // Stat (not Lstat): symlinks are dereferenced.
	if err != nil {
		return fmt.Errorf("Stat(): %w", err)
	}
	mode := srcInfo.Mode().Perm()

	readFile, err := rfs.Open(src)
	if err != nil {
		return pos.Errorf("Open(): %w", err)
	}
	defer func() { outErr = errors.Join(outErr, readFile.Close()) }()

	if dryRun {
		return nil
	}

	parentDir := filepath.Dir(dst)
	if err := rfs.MkdirAll(parentDir, OwnerRWXPerms); err != nil {
		return fmt.Errorf("MkdirAll(%s): %w", parentDir, err)
	}

	writeFile, err := rfs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return pos.Errorf("OpenFile(): %w", err)
	}
	defer func() { outErr = errors.Join(outErr, writeFile.Close()) }()

	if _, err := io.Copy(writeFile, readFile); err != nil {
		return fmt.Errorf("Copy(): %w", err)
	}
	logger.DebugContext(ctx, "copied file", "source", src, "destination", dst)
	return nil
}

func backUp(ctx context.Context, rfs FS, backupDir, dstRoot, relPath string) error {
	backupFile := filepath.Join(backupDir, relPath)
	fileToBackup := filepath.Join(dstRoot, relPath)

	if err := CopyFile(ctx, nil, rfs, fileToBackup, backupFile, false); err != nil {
		return fmt.Errorf("failed backing up file %q at %q before overwriting: %w", fileToBackup, backupFile, err)
	}
	logging.FromContext(ctx).DebugContext(ctx, "completed backup", "source", fileToBackup, "destination", backupFile)
	return nil
}

func mkdirAllChecked(pos *model.ConfigPos, rfs FS, path string, dryRun bool) error {
	create := false
	info, err := rfs.Stat(path)
	if err != nil {
		if !IsNotExistErr(err) {
			return pos.Errorf("Stat(): %w", err)
		}
		create = true
	} else if !info.Mode().IsDir() {
		return pos.Errorf("cannot overwrite a file with a directory of the same name, %q", path)
	}

	if dryRun || !create {
		return nil
	}
	if err := rfs.MkdirAll(path, OwnerRWXPerms); err != nil {
		return pos.Errorf("MkdirAll(): %w", err)
	}
	return nil
}

// IsNotExistErr reports whether err means "the path doesn't exist."
func IsNotExistErr(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrInvalid)
}

// Exists reports whether path exists, using the real filesystem.
func Exists(path string) (bool, error) {
	return ExistsFS(&RealFS{}, path)
}

// ExistsFS is like Exists but takes an FS, for testability.
func ExistsFS(rfs FS, path string) (bool, error) {
	_, err := rfs.Stat(path)
	if err != nil {
		if IsNotExistErr(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed checking existence of %q: %w", path, err)
	}
	return true, nil
}

// JoinIfRelative returns path if absolute, otherwise filepath.Join(cwd, path).
func JoinIfRelative(cwd, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

// DestInternalDir is the directory name reserved underneath an output
// directory for ffizer's own bookkeeping. No implemented operation uses it,
// and no pipeline stage calls IsReservedInDest, so paths under it are not
// rejected as output destinations.
const DestInternalDir = ".ffizer"

// IsReservedInDest reports whether relPath (relative to the destination
// root) falls under a name reserved for ffizer's own use.
func IsReservedInDest(relPath string) bool {
	clean := filepath.Clean(relPath)
	first := strings.Split(clean, string(filepath.Separator))[0]
	return first == DestInternalDir
}
