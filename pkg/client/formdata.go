package client

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// escapeQuotes escapes a quoted header parameter the way mime/multipart does
func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// FormData is an ordered multipart/form-data body
type FormData struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// NewFormData creates an empty form
func NewFormData() *FormData {
	return &FormData{}
}

// Set appends a scalar field
func (f *FormData) Set(name, value string) *FormData {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// SetInt appends an integer field
func (f *FormData) SetInt(name string, value int) *FormData {
	return f.Set(name, strconv.Itoa(value))
}

// SetBool appends a boolean field
func (f *FormData) SetBool(name string, value bool) *FormData {
	return f.Set(name, strconv.FormatBool(value))
}

// AttachFile appends a binary part
func (f *FormData) AttachFile(field, filename, contentType string, data []byte) *FormData {
	f.files = append(f.files, formFile{field: field, filename: filename, contentType: contentType, data: data})
	return f
}

// Value returns the first value of a scalar field
func (f *FormData) Value(name string) (string, bool) {
	for _, fld := range f.fields {
		if fld.name == name {
			return fld.value, true
		}
	}
	return "", false
}

// Names lists the scalar field names in insertion order
func (f *FormData) Names() []string {
	names := make([]string, 0, len(f.fields))
	for _, fld := range f.fields {
		names = append(names, fld.name)
	}
	return names
}

// HasFile reports whether a binary part is attached under field
func (f *FormData) HasFile(field string) bool {
	for _, file := range f.files {
		if file.field == field {
			return true
		}
	}
	return false
}

// Encode renders the body and returns it with its content type
func (f *FormData) Encode() (string, []byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fld := range f.fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return "", nil, fmt.Errorf("failed to write field %s: %w", fld.name, err)
		}
	}

	for _, file := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(file.field), escapeQuotes(file.filename)))
		contentType := file.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return "", nil, fmt.Errorf("failed to create part %s: %w", file.field, err)
		}
		if _, err := part.Write(file.data); err != nil {
			return "", nil, fmt.Errorf("failed to write part %s: %w", file.field, err)
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	return w.FormDataContentType(), buf.Bytes(), nil
}
