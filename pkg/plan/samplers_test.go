package plan_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/crankplan/pkg/plan"
)

func TestHTTPSamplerPostBodies(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"map", map[string]any{"var1": 1}, `{"var1":1}`},
		{"slice", []int{1, 2, 3, 4}, `[1,2,3,4]`},
		{"string", `{"name":"John Doe"}`, `{"name":"John Doe"}`},
		{"nested map keys are sorted", map[string]any{"b": []string{"x"}, "a": true}, `{"a":true,"b":["x"]}`},
		{"bytes", []byte("raw"), "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newBuilder(t)
			s, err := b.HTTPSampler("Echo", "https://example.com/posts")
			require.NoError(t, err)

			posted, err := s.Post(tt.body, plan.ApplicationJSON)
			require.NoError(t, err)
			assert.Equal(t, plan.KindHTTPSampler, posted.Kind())
			assert.Equal(t, s.ID(), posted.ID())
			assert.Equal(t, []plan.Mutation{plan.SetBody{Body: tt.want, ContentType: plan.ApplicationJSON}}, nativeOf(posted).mutations)
		})
	}
}

func TestHTTPSamplerPostAllContentTypes(t *testing.T) {
	b, _ := newBuilder(t)
	s, err := b.HTTPSampler("Echo", "https://example.com/posts")
	require.NoError(t, err)

	for _, ct := range plan.ContentTypes() {
		t.Run(ct.Name(), func(t *testing.T) {
			posted, err := s.Post(map[string]int{"var1": 1}, ct)
			require.NoError(t, err)
			assert.Equal(t, plan.KindHTTPSampler, posted.Kind())
		})
	}
}

func TestHTTPSamplerPostRejectsScalar(t *testing.T) {
	b, d := newBuilder(t)
	s, err := b.HTTPSampler("Echo", "https://example.com/posts")
	require.NoError(t, err)

	posted, err := s.Post(1, plan.ApplicationJSON)
	require.Error(t, err)
	assert.Nil(t, posted)
	assert.ErrorIs(t, err, plan.ErrType)
	assert.Contains(t, err.Error(), "int")
	assert.Zero(t, d.mutated)
}

func TestHTTPSamplerHeaders(t *testing.T) {
	b, _ := newBuilder(t)
	s, err := b.HTTPSampler("Echo", "https://example.com/posts")
	require.NoError(t, err)

	s1, err := s.Header("key1", "val1")
	require.NoError(t, err)
	s2, err := s1.Header("key1", "val2")
	require.NoError(t, err)

	assert.Equal(t, s.ID(), s2.ID())
	assert.Empty(t, nativeOf(s).mutations)
	assert.Len(t, nativeOf(s1).mutations, 1)
	assert.Equal(t, []plan.Mutation{
		plan.SetHeader{Key: "key1", Value: "val1"},
		plan.SetHeader{Key: "key1", Value: "val2"},
	}, nativeOf(s2).mutations)
}

func TestHTTPSamplerHeaderTypeErrors(t *testing.T) {
	b, d := newBuilder(t)
	s, err := b.HTTPSampler("Echo", "https://example.com/posts")
	require.NoError(t, err)

	_, keyErr := s.Header(1, "aa")
	_, valueErr := s.Header("aa", 1)

	var kt, vt *plan.TypeError
	require.ErrorAs(t, keyErr, &kt)
	require.ErrorAs(t, valueErr, &vt)
	assert.Equal(t, "key", kt.Param)
	assert.Equal(t, "value", vt.Param)
	assert.Equal(t, "int", kt.Got)
	assert.NotEqual(t, keyErr.Error(), valueErr.Error())
	assert.Zero(t, d.mutated)
}

func TestHTTPSamplerHeaderRejectsLineBreaks(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty key", " ", "v"},
		{"key with newline", "X-A\nX-B", "v"},
		{"value with CRLF", "X-A", "v\r\nX-Injected: 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, d := newBuilder(t)
			s, err := b.HTTPSampler("Echo", "https://example.com/posts")
			require.NoError(t, err)

			_, err = s.Header(tt.key, tt.value)
			require.ErrorIs(t, err, plan.ErrInvalidArgument)
			assert.Zero(t, d.mutated)
		})
	}
}

func TestHTTPSamplerMultipart(t *testing.T) {
	b, d := newBuilder(t)
	s, err := b.HTTPSampler("Upload", "https://example.com/upload")
	require.NoError(t, err)

	missing := filepath.Join("path", "to", "file.ext")
	_, err = s.PostMultipartFormData("name", missing, plan.MultipartFormData)
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrNotFound)
	assert.Contains(t, err.Error(), missing)
	assert.Zero(t, d.mutated)

	existing := writeCSV(t, "id\n1\n")
	up, err := s.PostMultipartFormData("name", existing, plan.MultipartFormData)
	require.NoError(t, err)
	assert.Equal(t, []plan.Mutation{plan.AddMultipartFile{Name: "name", Path: existing, ContentType: plan.MultipartFormData}}, nativeOf(up).mutations)
}

func TestHTTPSamplerChildrenAfterConstruction(t *testing.T) {
	b, _ := newBuilder(t)
	timer, err := b.ConstantTimer(0)
	require.NoError(t, err)
	s, err := b.HTTPSampler("Echo", "https://example.com")
	require.NoError(t, err)

	require.NoError(t, s.Children(timer))
	assert.Len(t, s.Elements(), 1)

	withHeader, err := s.Header("k", "v")
	require.NoError(t, err)
	assert.Len(t, withHeader.Elements(), 1)
	assert.Len(t, nativeOf(withHeader).children, 1)
}

func TestHTTPSamplerMethod(t *testing.T) {
	b, _ := newBuilder(t)
	s, err := b.HTTPSampler("Echo", "https://example.com")
	require.NoError(t, err)

	put, err := s.Method("put")
	require.NoError(t, err)
	assert.Equal(t, []plan.Mutation{plan.SetMethod{Method: "PUT"}}, nativeOf(put).mutations)

	_, err = s.Method(" ")
	assert.ErrorIs(t, err, plan.ErrInvalidArgument)

	_, err = b.HTTPSampler("no url", "")
	assert.ErrorIs(t, err, plan.ErrInvalidArgument)
}

func TestContentTypeStrings(t *testing.T) {
	assert.Equal(t, "application/json; charset=UTF-8", plan.ApplicationJSON.String())
	assert.Equal(t, "application/octet-stream", plan.ApplicationOctetStream.String())
	assert.Equal(t, "multipart/form-data", plan.MultipartFormData.MimeType())

	for _, in := range []string{"APPLICATION_JSON", "application/json", "application/json; charset=UTF-8"} {
		ct, err := plan.ParseContentType(in)
		require.NoError(t, err, in)
		assert.Equal(t, plan.ApplicationJSON, ct)
	}
	_, err := plan.ParseContentType("application/unknown")
	assert.Error(t, err)
}
