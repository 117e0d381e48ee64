package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// BodySource produces the request body for one request.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
	// ContentType is the media type the body was encoded with, or "" when the
	// caller did not specify one.
	ContentType() string
}

// Part is a file field of a multipart/form-data body.
type Part struct {
	Name        string
	Path        string
	ContentType string
}

// NewBodySource renders the body of spec for one request. Inline bodies have
// their ${name} placeholders expanded; multipart files are read from disk on
// every call so edits between iterations are picked up.
func NewBodySource(spec Spec, vars Expander) (BodySource, error) {
	if len(spec.Body) > 0 && len(spec.Parts) > 0 {
		return nil, fmt.Errorf("body and multipart parts cannot both be provided")
	}

	if len(spec.Parts) > 0 {
		return newMultipartBodySource(spec.Parts)
	}

	if len(spec.Body) > 0 {
		data := spec.Body
		if vars != nil {
			data = []byte(vars.Expand(string(data)))
		}
		return &inlineBodySource{data: data, contentType: spec.ContentType}, nil
	}

	return emptyBodySource{}, nil
}

type inlineBodySource struct {
	data        []byte
	contentType string
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

func (s *inlineBodySource) ContentType() string {
	return s.contentType
}

func newMultipartBodySource(parts []Part) (BodySource, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range parts {
		if strings.TrimSpace(part.Name) == "" {
			return nil, fmt.Errorf("multipart field name is required")
		}
		data, err := os.ReadFile(part.Path)
		if err != nil {
			return nil, fmt.Errorf("multipart file: %w", err)
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
			part.Name, filepath.Base(part.Path)))
		ct := part.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)

		fw, err := w.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("multipart part %s: %w", part.Name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return nil, fmt.Errorf("multipart part %s: %w", part.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("multipart body: %w", err)
	}

	return &inlineBodySource{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

type emptyBodySource struct{}

func (emptyBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (emptyBodySource) ContentLength() (int64, bool) {
	return 0, true
}

func (emptyBodySource) ContentType() string {
	return ""
}
