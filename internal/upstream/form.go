package upstream

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Form is a multipart payload for mutation endpoints that carry file
// attachments. Field order is preserved.
type Form struct {
	fields []formField
	files  []FilePart
}

type formField struct {
	key   string
	value string
}

type FilePart struct {
	Field    string
	Filename string
	Reader   io.Reader
}

func NewForm() *Form {
	return &Form{}
}

func (f *Form) AddField(key string, value string) {
	f.fields = append(f.fields, formField{key: key, value: value})
}

func (f *Form) AddFile(field string, filename string, r io.Reader) {
	f.files = append(f.files, FilePart{Field: field, Filename: filename, Reader: r})
}

// Fields returns the field values keyed by name. Used by tests and by the
// wizard's success path.
func (f *Form) Fields() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		out[field.key] = field.value
	}
	return out
}

func (f *Form) FileFields() []string {
	out := make([]string, 0, len(f.files))
	for _, file := range f.files {
		out = append(out, file.Field)
	}
	return out
}

func (f *Form) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for _, field := range f.fields {
		if err := writer.WriteField(field.key, field.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", field.key, err)
		}
	}

	for _, file := range f.files {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", file.Field, err)
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return nil, "", fmt.Errorf("copy file part %s: %w", file.Field, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf, writer.FormDataContentType(), nil
}
