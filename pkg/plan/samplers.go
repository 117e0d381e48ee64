package plan

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"
)

// HTTPSampler sends one HTTP request per execution. It sits under thread groups and
// itself takes timers, assertions, extractors and datasets scoped to its requests.
type HTTPSampler struct{ node }

// HTTPSampler builds a GET sampler named name targeting url. Names and URLs may
// reference variables as ${var}.
func (b *Builder) HTTPSampler(name, url string, children ...Element) (*HTTPSampler, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("http sampler %q: url is required: %w", name, ErrInvalidArgument)
	}
	n, err := b.newNode(KindHTTPSampler, HTTPSamplerArgs{Name: name, URL: url}, children)
	if err != nil {
		return nil, err
	}
	return &HTTPSampler{node: n}, nil
}

// Header returns a sampler that also sends the given header. Keys and values arrive
// untyped from plan files, so both are checked here.
func (s *HTTPSampler) Header(key, value any) (*HTTPSampler, error) {
	k, ok := key.(string)
	if !ok {
		return nil, typeErrorf("key", key, "header key must be a string, got %s", typeName(key))
	}
	v, ok := value.(string)
	if !ok {
		return nil, typeErrorf("value", value, "header value must be a string, got %s", typeName(value))
	}
	if strings.TrimSpace(k) == "" || strings.ContainsAny(k, "\r\n") {
		return nil, fmt.Errorf("header key %q: %w", k, ErrInvalidArgument)
	}
	if strings.ContainsAny(v, "\r\n") {
		return nil, fmt.Errorf("header %s: value contains a line break: %w", k, ErrInvalidArgument)
	}
	n, err := s.mutate(SetHeader{Key: k, Value: v})
	if err != nil {
		return nil, err
	}
	return &HTTPSampler{node: n}, nil
}

// Post returns a sampler that sends body with a POST. Maps, slices and arrays are
// encoded as JSON; strings and byte slices are sent verbatim.
func (s *HTTPSampler) Post(body any, ct ContentType) (*HTTPSampler, error) {
	encoded, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	if !ct.valid() {
		return nil, fmt.Errorf("post: content type %d: %w", int(ct), ErrInvalidArgument)
	}
	n, err := s.mutate(SetBody{Body: encoded, ContentType: ct})
	if err != nil {
		return nil, err
	}
	return &HTTPSampler{node: n}, nil
}

// PostMultipartFormData returns a sampler that uploads the file at path as the form
// part name. The file must exist when this is called.
func (s *HTTPSampler) PostMultipartFormData(name, path string, ct ContentType) (*HTTPSampler, error) {
	if err := s.b.requireFile(path); err != nil {
		return nil, err
	}
	n, err := s.mutate(AddMultipartFile{Name: name, Path: path, ContentType: ct})
	if err != nil {
		return nil, err
	}
	return &HTTPSampler{node: n}, nil
}

// Method returns a sampler using the given HTTP verb.
func (s *HTTPSampler) Method(method string) (*HTTPSampler, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" || strings.ContainsAny(method, " \t\r\n") {
		return nil, fmt.Errorf("http method %q: %w", method, ErrInvalidArgument)
	}
	n, err := s.mutate(SetMethod{Method: method})
	if err != nil {
		return nil, err
	}
	return &HTTPSampler{node: n}, nil
}

// Get is shorthand for Method(http.MethodGet).
func (s *HTTPSampler) Get() (*HTTPSampler, error) { return s.Method(http.MethodGet) }

func encodeBody(body any) (string, error) {
	switch v := body.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", &TypeError{Param: "body", Got: "nil", Msg: "invalid body type: expected map, slice or string, got nil"}
	}

	switch reflect.ValueOf(body).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode body: %w", err)
		}
		return string(data), nil
	default:
		return "", typeErrorf("body", body, "invalid body type: expected map, slice or string, got %s", typeName(body))
	}
}

// DummySampler produces a sample without any network traffic, echoing a fixed
// response body.
type DummySampler struct{ node }

// DummySampler builds a sampler named name whose response body is responseBody.
func (b *Builder) DummySampler(name, responseBody string, children ...Element) (*DummySampler, error) {
	n, err := b.newNode(KindDummySampler, DummySamplerArgs{Name: name, ResponseBody: responseBody}, children)
	if err != nil {
		return nil, err
	}
	return &DummySampler{node: n}, nil
}

// ResponseTime returns a sampler that reports d as its elapsed time.
func (s *DummySampler) ResponseTime(d time.Duration) (*DummySampler, error) {
	if d < 0 {
		return nil, fmt.Errorf("dummy sampler response time %s: %w", d, ErrInvalidArgument)
	}
	n, err := s.mutate(SetResponseTime{ResponseTime: d})
	if err != nil {
		return nil, err
	}
	return &DummySampler{node: n}, nil
}
