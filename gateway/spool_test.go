package gateway

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func multipartHeader(t *testing.T, name, contentType string, payload []byte) *multipart.FileHeader {
	t.Helper()
	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	request := httptest.NewRequest("POST", "/", buffer)
	request.Header.Set("Content-Type", writer.FormDataContentType())

	file, fileHeader, err := request.FormFile("file")
	require.NoError(t, err)
	file.Close()
	return fileHeader
}

func TestSpoolPayload_RoundTrip(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	payload := []byte("hello courier")
	header := multipartHeader(t, "note.txt", "text/plain", payload)

	source, contentType, err := spoolPayload(dir, header)
	req.NoError(err)
	req.Equal("text/plain", contentType)

	data, err := source.Fetch(context.Background())
	req.NoError(err)
	req.Equal(payload, data)

	// Dispose removes the spool file; a second fetch fails.
	req.NoError(source.Dispose())
	_, err = source.Fetch(context.Background())
	req.Error(err)

	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Empty(entries)
}

func TestSpoolPayload_SniffsUndeclaredContentType(t *testing.T) {
	req := require.New(t)

	// %PDF magic bytes with no declared content type.
	header := multipartHeader(t, "doc.bin", "", []byte("%PDF-1.4 minimal"))

	source, contentType, err := spoolPayload(t.TempDir(), header)
	req.NoError(err)
	defer source.Dispose()

	req.Equal("application/pdf", contentType)
}
