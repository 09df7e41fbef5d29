// Package documents stores uploaded files (statements, contracts, campaign
// attachments) and reads them back for parsing.
package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document describes a stored upload.
type Document struct {
	URI         string    `json:"uri"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Store saves and fetches uploaded documents.
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (*Document, error)
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// objectName builds uploads/YYYY/MM/DD/<uuid>-<name>.
func objectName(now time.Time, name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("uploads/%s/%s-%s", now.Format("2006/01/02"), uuid.New().String(), base)
}

// FilenameFromURI extracts the original file name from a stored URI.
// e.g. "gs://bucket/uploads/2024/01/02/<uuid>-file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	base := path.Base(strings.TrimPrefix(strings.TrimPrefix(uri, "gs://"), "file://"))
	// Drop the "<uuid>-" prefix added on upload.
	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}

// DetectMIME guesses the content type from the file extension.
func DetectMIME(name, fallback string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if fallback != "" {
		return fallback
	}
	return "application/octet-stream"
}
