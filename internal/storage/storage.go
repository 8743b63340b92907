package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	FolderUserImages  = "user-images"
	FolderUserResumes = "user-resumes"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// File es un adjunto recibido en el registro, listo para subir.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader persiste un archivo y devuelve su URL pública.
type Uploader interface {
	Upload(ctx context.Context, folder string, file File) (string, error)
}

// Extension devuelve la extensión en minúsculas si está permitida.
func Extension(name string) (string, error) {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedFileType
	}
	return ext, nil
}

func objectKey(folder, ext string) string {
	return folder + "/" + uuid.NewString() + ext
}

func contentType(file File, ext string) string {
	if ct := strings.TrimSpace(file.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return allowedExtensions[ext]
}

type disabledUploader struct {
	reason string
}

func NewDisabledUploader(reason string) Uploader {
	return &disabledUploader{reason: reason}
}

func (u *disabledUploader) Upload(_ context.Context, _ string, _ File) (string, error) {
	if u.reason == "" {
		return "", errors.New("file storage disabled")
	}
	return "", errors.New(u.reason)
}
