package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ImportArchive extracts a ZIP archive into a scoped temporary directory and
// imports the extracted tree. The extraction directory is removed on every
// exit path.
func (b *BatchImporter) ImportArchive(ctx context.Context, zipPath string) (Report, error) {
	tmpDir, err := os.MkdirTemp("", "modellion-import-")
	if err != nil {
		return Report{Errors: []string{}}, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			b.logger.Warn("Failed to clean up extraction dir",
				zap.String("dir", tmpDir), zap.Error(err))
		}
	}()

	if err := extractZip(zipPath, tmpDir); err != nil {
		return Report{Errors: []string{}}, err
	}

	return b.ImportDir(ctx, tmpDir)
}

// extractZip unpacks an archive into dest, refusing entries that would
// escape it
func extractZip(zipPath, dest string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("压缩包无法打开: %w", err)
	}
	defer reader.Close()

	cleanDest := filepath.Clean(dest)
	for _, f := range reader.File {
		target := filepath.Join(cleanDest, f.Name)
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("压缩包含非法路径: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create dir %s: %w", f.Name, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}
