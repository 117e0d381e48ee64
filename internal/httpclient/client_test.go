package httpclient

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/crankplan/internal/variables"
)

func TestBuildRequestWithHeaders(t *testing.T) {
	spec := Spec{
		Method: "post",
		URL:    "http://example.com/api",
		Headers: []Header{
			{Key: "content-type", Value: "application/json"},
			{Key: "X-Trace-Id", Value: "12345"},
		},
		Body: []byte(`{"hello":"world"}`),
	}

	builder, err := NewRequestBuilder(spec)
	if err != nil {
		t.Fatalf("expected builder, got error: %v", err)
	}

	req, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %s", req.Method)
	}
	if req.URL.String() != spec.URL {
		t.Fatalf("expected URL %s, got %s", spec.URL, req.URL.String())
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if string(bodyBytes) != string(spec.Body) {
		t.Fatalf("expected body %q, got %q", spec.Body, bodyBytes)
	}
	if req.ContentLength != int64(len(spec.Body)) {
		t.Fatalf("expected content length %d, got %d", len(spec.Body), req.ContentLength)
	}

	replayBody, err := req.GetBody()
	if err != nil {
		t.Fatalf("expected replay body, got error: %v", err)
	}
	replayBytes, _ := io.ReadAll(replayBody)
	if string(replayBytes) != string(spec.Body) {
		t.Fatalf("expected replay body %q, got %q", spec.Body, replayBytes)
	}
}

func TestRequestBuilder_BodyContentTypeDefault(t *testing.T) {
	builder, err := NewRequestBuilder(Spec{
		Method:      http.MethodPost,
		URL:         "http://example.com",
		Body:        []byte("a=1"),
		ContentType: "application/x-www-form-urlencoded; charset=ISO-8859-1",
	})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	req, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded; charset=ISO-8859-1" {
		t.Fatalf("unexpected Content-Type %q", got)
	}
}

func TestRequestBuilder_ExplicitHeaderWinsOverBodyContentType(t *testing.T) {
	builder, _ := NewRequestBuilder(Spec{
		URL:         "http://example.com",
		Headers:     []Header{{Key: "Content-Type", Value: "text/custom"}},
		Body:        []byte("x"),
		ContentType: "application/json",
	})
	req, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := req.Header.Get("Content-Type"); got != "text/custom" {
		t.Fatalf("expected explicit Content-Type, got %q", got)
	}
}

func TestRequestBuilder_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header Header
	}{
		{"empty key", Header{Key: "  ", Value: "v"}},
		{"newline in key", Header{Key: "X-Bad\nKey", Value: "v"}},
		{"newline in value", Header{Key: "X-Key", Value: "a\r\nb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequestBuilder(Spec{URL: "http://example.com", Headers: []Header{tt.header}})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRequestBuilder_MissingURL(t *testing.T) {
	if _, err := NewRequestBuilder(Spec{URL: " "}); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestRequestBuilder_MethodFallbackAndVerbs(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", http.MethodGet},
		{"get", http.MethodGet},
		{" put ", http.MethodPut},
		{"Patch", http.MethodPatch},
		{"DELETE", http.MethodDelete},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.input, func(t *testing.T) {
			builder, err := NewRequestBuilder(Spec{Method: tt.input, URL: "http://example.com"})
			if err != nil {
				t.Fatalf("NewRequestBuilder() error = %v", err)
			}
			if builder.Method() != tt.want {
				t.Fatalf("Method() = %s, want %s", builder.Method(), tt.want)
			}
		})
	}
}

func TestRequestBuilder_HeaderOrderAndRepeats(t *testing.T) {
	builder, _ := NewRequestBuilder(Spec{
		URL: "http://example.com",
		Headers: []Header{
			{Key: "X-Multi", Value: "one"},
			{Key: "x-multi", Value: "two"},
		},
	})
	req, _ := builder.Build(context.Background(), nil)
	if got := req.Header.Values("X-Multi"); len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("expected ordered repeated header values, got %v", got)
	}
}

func TestRequestBuilder_ExpandsVariables(t *testing.T) {
	store := variables.NewStore(map[string]string{"host": "api.example.com", "id": "42", "token": "abc"})

	builder, err := NewRequestBuilder(Spec{
		Method:  http.MethodPost,
		URL:     "http://${host}/users/${id}",
		Headers: []Header{{Key: "Authorization", Value: "Bearer ${token}"}},
		Body:    []byte(`{"id":"${id}","missing":"${nope}"}`),
	})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	req, err := builder.Build(context.Background(), store)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if req.URL.String() != "http://api.example.com/users/42" {
		t.Errorf("unexpected URL %s", req.URL)
	}
	if req.Header.Get("Authorization") != "Bearer abc" {
		t.Errorf("unexpected Authorization %q", req.Header.Get("Authorization"))
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"id":"42","missing":"${nope}"}` {
		t.Errorf("unexpected body %s", body)
	}
	if req.ContentLength != int64(len(body)) {
		t.Errorf("content length %d does not match expanded body %d", req.ContentLength, len(body))
	}
}

func TestRequestBuilder_Multipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.png")
	if err := os.WriteFile(path, []byte("PNGDATA"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	builder, err := NewRequestBuilder(Spec{
		Method: http.MethodPost,
		URL:    "http://example.com/upload",
		Parts:  []Part{{Name: "avatar", Path: path, ContentType: "image/png"}},
	})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	req, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("unexpected Content-Type %q (%v)", req.Header.Get("Content-Type"), err)
	}

	reader := multipart.NewReader(req.Body, params["boundary"])
	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	if part.FormName() != "avatar" || part.FileName() != "avatar.png" {
		t.Errorf("unexpected part %s/%s", part.FormName(), part.FileName())
	}
	if part.Header.Get("Content-Type") != "image/png" {
		t.Errorf("unexpected part Content-Type %q", part.Header.Get("Content-Type"))
	}
	data, _ := io.ReadAll(part)
	if string(data) != "PNGDATA" {
		t.Errorf("unexpected part data %q", data)
	}
}

func TestRequestBuilder_MultipartMissingFile(t *testing.T) {
	builder, err := NewRequestBuilder(Spec{
		URL:   "http://example.com/upload",
		Parts: []Part{{Name: "f", Path: filepath.Join(t.TempDir(), "gone.bin")}},
	})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	if _, err := builder.Build(context.Background(), nil); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestNewBodySource_BodyAndPartsConflict(t *testing.T) {
	_, err := NewBodySource(Spec{Body: []byte("x"), Parts: []Part{{Name: "a", Path: "b"}}}, nil)
	if err == nil || !strings.Contains(err.Error(), "cannot both") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestNewBodySource_Empty(t *testing.T) {
	src, err := NewBodySource(Spec{}, nil)
	if err != nil {
		t.Fatalf("NewBodySource() error = %v", err)
	}
	if n, ok := src.ContentLength(); !ok || n != 0 {
		t.Fatalf("expected empty body, got %d", n)
	}
	if src.ContentType() != "" {
		t.Fatalf("expected no content type, got %q", src.ContentType())
	}
}

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout)
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConns == 0 {
		t.Fatalf("expected transport to allow idle connections")
	}
}
