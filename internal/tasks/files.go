package tasks

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
)

const sniffLen = 512

// FileFromPath describes the file at path for upload. The content type comes from the extension, falling back
// to sniffing the first bytes.
func FileFromPath(path string) (models.UploadFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.UploadFile{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return models.UploadFile{}, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}

	contentType, err := detectContentType(path)
	if err != nil {
		return models.UploadFile{}, err
	}

	return models.UploadFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FilesFromPaths describes every path, stopping at the first one that cannot be read.
func FilesFromPaths(paths []string) ([]models.UploadFile, error) {
	files := make([]models.UploadFile, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := FileFromPath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func detectContentType(path string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return http.DetectContentType(buf[:n]), nil
}
