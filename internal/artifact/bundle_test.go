package artifact

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TarGzipDir creates an in-memory gzip compressed tar archive by walking a provided
// directory path and trimming the directory prefix from the file paths.
func TarGzipDir(dir string) ([]byte, error) {
	var archiveData bytes.Buffer
	gw := gzip.NewWriter(&archiveData)
	tw := tar.NewWriter(gw)

	if err := filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// skip directories
		if info.IsDir() {
			return nil
		}
		header, err := tar.FileInfoHeader(info, path)
		if err != nil {
			return err
		}
		// remove the collection directory prefix
		header.Name = filepath.ToSlash(strings.TrimPrefix(path, dir+string(filepath.Separator)))
		if err = tw.WriteHeader(header); err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err = io.Copy(tw, file); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}); err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return archiveData.Bytes(), nil
}

// ZipDir creates an in-memory zip archive of dir, the layout GitLab serves artifacts in
func ZipDir(dir string) ([]byte, error) {
	var archiveData bytes.Buffer
	zw := zip.NewWriter(&archiveData)

	if err := filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := filepath.ToSlash(strings.TrimPrefix(path, dir+string(filepath.Separator)))
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err = io.Copy(w, file); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return archiveData.Bytes(), nil
}
