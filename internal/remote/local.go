package remote

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// LocalUploader copies artifacts into a directory and returns file URLs.
// It stands in for object storage on machines without one.
type LocalUploader struct {
	Dir string
}

// Upload implements certificate.Uploader.
func (u LocalUploader) Upload(ctx context.Context, objectName, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst, err := filepath.Abs(filepath.Join(u.Dir, filepath.FromSlash(objectName)))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	if err := copyFile(dst, localPath); err != nil {
		return "", fmt.Errorf("copy %s: %w", objectName, err)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String(), nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
