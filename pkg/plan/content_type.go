package plan

import (
	"fmt"
	"strings"
)

// ContentType is the closed set of MIME type and charset pairs a sampler body may
// declare.
type ContentType int

const (
	ApplicationAtomXML ContentType = iota
	ApplicationFormURLEncoded
	ApplicationJSON
	ApplicationOctetStream
	ApplicationSVGXML
	ApplicationXHTMLXML
	ApplicationXML
	MultipartFormData
	TextHTML
	TextPlain
	TextXML
	Wildcard
)

var contentTypes = [...]struct {
	name    string
	mime    string
	charset string
}{
	ApplicationAtomXML:        {"APPLICATION_ATOM_XML", "application/atom+xml", "ISO-8859-1"},
	ApplicationFormURLEncoded: {"APPLICATION_FORM_URLENCODED", "application/x-www-form-urlencoded", "ISO-8859-1"},
	ApplicationJSON:           {"APPLICATION_JSON", "application/json", "UTF-8"},
	ApplicationOctetStream:    {"APPLICATION_OCTET_STREAM", "application/octet-stream", ""},
	ApplicationSVGXML:         {"APPLICATION_SVG_XML", "application/svg+xml", "ISO-8859-1"},
	ApplicationXHTMLXML:       {"APPLICATION_XHTML_XML", "application/xhtml+xml", "ISO-8859-1"},
	ApplicationXML:            {"APPLICATION_XML", "application/xml", "ISO-8859-1"},
	MultipartFormData:         {"MULTIPART_FORM_DATA", "multipart/form-data", "ISO-8859-1"},
	TextHTML:                  {"TEXT_HTML", "text/html", "ISO-8859-1"},
	TextPlain:                 {"TEXT_PLAIN", "text/plain", "ISO-8859-1"},
	TextXML:                   {"TEXT_XML", "text/xml", "ISO-8859-1"},
	Wildcard:                  {"WILDCARD", "*/*", ""},
}

// ContentTypes lists every member of the enum in declaration order.
func ContentTypes() []ContentType {
	out := make([]ContentType, len(contentTypes))
	for i := range contentTypes {
		out[i] = ContentType(i)
	}
	return out
}

func (c ContentType) valid() bool { return c >= 0 && int(c) < len(contentTypes) }

// Name returns the constant name, e.g. "APPLICATION_JSON".
func (c ContentType) Name() string {
	if !c.valid() {
		return fmt.Sprintf("CONTENT_TYPE(%d)", int(c))
	}
	return contentTypes[c].name
}

// MimeType returns the bare media type, e.g. "application/json".
func (c ContentType) MimeType() string {
	if !c.valid() {
		return ""
	}
	return contentTypes[c].mime
}

// Charset returns the declared charset or "" when the type carries none.
func (c ContentType) Charset() string {
	if !c.valid() {
		return ""
	}
	return contentTypes[c].charset
}

// String renders the header value, e.g. "application/json; charset=UTF-8".
func (c ContentType) String() string {
	if cs := c.Charset(); cs != "" {
		return c.MimeType() + "; charset=" + cs
	}
	return c.MimeType()
}

// ParseContentType accepts either a constant name ("APPLICATION_JSON") or a media
// type ("application/json").
func ParseContentType(s string) (ContentType, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	for i, ct := range contentTypes {
		if strings.EqualFold(s, ct.name) || strings.EqualFold(s, ct.mime) {
			return ContentType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown content type %q", s)
}
