package documents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveFetch(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	doc, err := s.Save(ctx, "statement.pdf", "", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.URI, "file://"))
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, int64(8), doc.Size)
	assert.Equal(t, "statement.pdf", FilenameFromURI(doc.URI))

	data, err := s.Fetch(ctx, doc.URI)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestLocalStore_FetchOutsideRoot(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
	_, err = s.Fetch(context.Background(), "gs://bucket/x")
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	now := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	name := objectName(now, `C:\Users\me\contract.pdf`)
	assert.True(t, strings.HasPrefix(name, "uploads/2024/03/09/"))
	assert.True(t, strings.HasSuffix(name, "-contract.pdf"))
}

func TestFilenameFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/uploads/2024/01/02/0b0f1f5e-3c1a-4f7a-9f0e-1f2e3d4c5b6a-file.pdf", "file.pdf"},
		{"gs://bucket/folder/plain.pdf", "plain.pdf"},
		{"file:///tmp/x/report.xlsx", "report.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FilenameFromURI(tt.uri), tt.uri)
	}
}
