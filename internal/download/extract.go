package download

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/riftlabs/corelaunch/internal/corerr"
)

// ExtractNatives opens zipPath as a ZIP archive and writes its regular
// files under destDir: entries under META-INF/ are
// skipped, directory entries are skipped (only regular files are
// written, creating parent directories as needed), and symlinks are
// disallowed — any entry whose mode bits indicate a symlink fails the
// whole extraction rather than being silently written through.
func ExtractNatives(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return corerr.New(corerr.KindZip, "opening native archive", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name, "META-INF/") {
			continue
		}
		if entry.Mode()&os.ModeSymlink != 0 {
			return corerr.New(corerr.KindZip, "symlink entries are not permitted: "+entry.Name, nil)
		}

		destPath := filepath.Join(destDir, filepath.FromSlash(entry.Name))
		if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return corerr.New(corerr.KindZip, "archive entry escapes destination directory: "+entry.Name, nil)
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return corerr.New(corerr.KindFilesystem, "creating native directory", err)
		}

		if err := extractOne(entry, destPath); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(entry *zip.File, destPath string) error {
	src, err := entry.Open()
	if err != nil {
		return corerr.New(corerr.KindZip, "opening archive entry "+entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, entry.Mode().Perm()|0600)
	if err != nil {
		return corerr.New(corerr.KindFilesystem, "creating extracted file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return corerr.New(corerr.KindZip, "writing extracted file "+entry.Name, err)
	}
	return nil
}
