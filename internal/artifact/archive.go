// Package artifact unpacks CI artifact bundles and finds the kubeconfig inside them.
package artifact

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies the archive encoding of an artifact bundle
type Format string

const (
	FormatZip     Format = "zip"
	FormatTarGzip Format = "tar.gz"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// Detect returns the archive format by its magic bytes
func Detect(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatZip, nil
	case bytes.HasPrefix(data, gzipMagic):
		return FormatTarGzip, nil
	case len(data) == 0:
		return "", fmt.Errorf("archive is empty")
	default:
		return "", fmt.Errorf("unrecognized archive format")
	}
}

// Verify checks that data is a complete, readable archive. Every entry header is
// walked so that truncated downloads are rejected, not just wrong content types.
func Verify(data []byte) (Format, error) {
	format, err := Detect(data)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatZip:
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("invalid zip archive: %w", err)
		}
		for _, f := range zr.File {
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("invalid zip entry %s: %w", f.Name, err)
			}
			_, err = io.Copy(io.Discard, rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("corrupt zip entry %s: %w", f.Name, err)
			}
		}
	case FormatTarGzip:
		if err := walkTarGzip(bytes.NewReader(data), func(*tar.Header, io.Reader) error { return nil }); err != nil {
			return "", err
		}
	}

	return format, nil
}

// Extract unpacks the bundle at bundlePath into destDir. Entries that would
// land outside destDir are rejected, symlinks are skipped.
func Extract(bundlePath, destDir string) error {
	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}

	format, err := Detect(data)
	if err != nil {
		return err
	}

	switch format {
	case FormatZip:
		return extractZip(data, destDir)
	default:
		return extractTarGzip(data, destDir)
	}
}

func extractZip(data []byte, destDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("invalid zip archive: %w", err)
	}

	for _, f := range zr.File {
		mode := f.Mode()
		if mode&fs.ModeSymlink != 0 {
			continue
		}
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o700); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		err = writeFile(target, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func extractTarGzip(data []byte, destDir string) error {
	return walkTarGzip(bytes.NewReader(data), func(header *tar.Header, r io.Reader) error {
		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(target, 0o700)
		case tar.TypeReg:
			return writeFile(target, r)
		default:
			return nil
		}
	})
}

func walkTarGzip(r io.Reader, fn func(*tar.Header, io.Reader) error) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("invalid gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			// the gzip trailer is only checked once the stream is read to the end
			if _, err := io.Copy(io.Discard, gz); err != nil {
				return fmt.Errorf("invalid gzip stream: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("invalid tar archive: %w", err)
		}
		if err := fn(header, tr); err != nil {
			return err
		}
		// drain so truncated entries surface as errors
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return fmt.Errorf("corrupt tar entry %s: %w", header.Name, err)
		}
	}
}

// safeJoin resolves name under root and rejects path traversal
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	cleanRoot := filepath.Clean(root)
	if target != cleanRoot && !strings.HasPrefix(target, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
