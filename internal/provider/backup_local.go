package provider

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupDirName is where local archives live, under the store directory.
// The directory is excluded from its own archives.
const backupDirName = ".acl/backups"

// LocalBackup archives the knowledge-base root into timestamped tar.gz
// files under <home>/.acl/backups.
type LocalBackup struct{}

// NewLocalBackup creates the local backup provider.
func NewLocalBackup() *LocalBackup {
	return &LocalBackup{}
}

func (b *LocalBackup) Name() string { return "local" }

// Backup writes <home>/.acl/backups/backup-<timestamp>.tar.gz.
func (b *LocalBackup) Backup(ctx context.Context, home string) (string, error) {
	backupDir := filepath.Join(home, filepath.FromSlash(backupDirName))
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	name := fmt.Sprintf("backup-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	archivePath := filepath.Join(backupDir, name)

	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	err = filepath.WalkDir(home, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(home, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		// Never archive earlier backups into a new one.
		if strings.HasPrefix(filepath.ToSlash(rel), backupDirName) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		tw.Close()
		gz.Close()
		os.Remove(archivePath)
		return "", fmt.Errorf("archiving %s: %w", home, err)
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("finalizing archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("finalizing archive: %w", err)
	}
	return archivePath, nil
}

// Restore unpacks the named archive over home. Files present in home but
// absent from the archive are left alone.
func (b *LocalBackup) Restore(ctx context.Context, home, name string) error {
	archivePath := filepath.Join(home, filepath.FromSlash(backupDirName), filepath.Base(name))
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening backup %s: %w", name, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", name, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading backup %s: %w", name, err)
		}
		rel := filepath.FromSlash(hdr.Name)
		if strings.Contains(rel, "..") {
			return fmt.Errorf("backup %s: unsafe entry %q", name, hdr.Name)
		}
		target := filepath.Join(home, rel)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("restoring %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("restoring %s: %w", hdr.Name, err)
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return fmt.Errorf("restoring %s: %w", hdr.Name, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("restoring %s: %w", hdr.Name, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("restoring %s: %w", hdr.Name, err)
			}
		}
	}
}

// List returns stored archives, newest first.
func (b *LocalBackup) List(home string) ([]BackupInfo, error) {
	backupDir := filepath.Join(home, filepath.FromSlash(backupDirName))
	entries, err := os.ReadDir(backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var infos []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tar.gz") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, BackupInfo{
			Name:    e.Name(),
			Path:    filepath.Join(backupDir, e.Name()),
			Size:    fi.Size(),
			Created: fi.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Created.After(infos[j].Created) })
	return infos, nil
}
