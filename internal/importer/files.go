package importer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Import modes. "link" tries a hard link and falls back to copying when the
// link fails (cross-filesystem, unsupported fs).
const (
	ModeCopy = "copy"
	ModeLink = "link"
)

// sanitizeName strips every character outside letters, digits, whitespace
// and hyphen, so author and title are safe as directory names.
func sanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "Unknown"
	}
	return out
}

// targetPath builds the canonical on-disk location for a file:
// root/<sanitized author>/<sanitized title>/<original file name>.
func targetPath(root, author, title, fileName string) string {
	return filepath.Join(root, sanitizeName(author), sanitizeName(title), fileName)
}

// materialize places the source file at target according to mode and
// returns the number of bytes written (the target's size).
func materialize(srcPath, target, mode string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir %s: %w", filepath.Dir(target), err)
	}

	if mode == ModeLink {
		if err := os.Link(srcPath, target); err == nil {
			info, statErr := os.Stat(target)
			if statErr != nil {
				return 0, fmt.Errorf("stat %s: %w", target, statErr)
			}
			return info.Size(), nil
		}
		// hard link failed, duplicate the bytes instead
	}

	return copyFile(srcPath, target)
}

func copyFile(srcPath, target string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", target, err)
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return 0, fmt.Errorf("copy to %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", target, err)
	}
	return n, nil
}

// fingerprint computes the MD5 digest of the file's bytes, streamed so large
// books don't load into memory.
func fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// fileFormat derives the stored format from the file extension, lowercased
// without the dot.
func fileFormat(fileName string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}
