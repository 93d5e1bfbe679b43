package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strconv"
)

// FormFile is one uploaded file.
type FormFile struct {
	Name    string
	Content io.Reader
}

// Form collects multipart fields. Repeated values and files are sent as name[0], name[1], ...
type Form struct {
	fields map[string]string
	lists  map[string][]string
	files  map[string][]FormFile
}

// NewForm builds an empty form.
func NewForm() *Form {
	return &Form{
		fields: map[string]string{},
		lists:  map[string][]string{},
		files:  map[string][]FormFile{},
	}
}

// Set stores a scalar field.
func (f *Form) Set(name, value string) *Form {
	f.fields[name] = value
	return f
}

// Add appends a value to a repeated field.
func (f *Form) Add(name string, values ...string) *Form {
	f.lists[name] = append(f.lists[name], values...)
	return f
}

// AddFile appends a file to a repeated file field such as images.
func (f *Form) AddFile(field string, file FormFile) *Form {
	f.files[field] = append(f.files[field], file)
	return f
}

// Encode writes the form and returns the body and its content type.
func (f *Form) Encode() ([]byte, string, error) {
	if f == nil {
		return nil, "", fmt.Errorf("api: form is nil")
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range sortedKeys(f.fields) {
		if err := w.WriteField(name, f.fields[name]); err != nil {
			return nil, "", fmt.Errorf("api: write field %s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(f.lists) {
		for i, value := range f.lists[name] {
			if err := w.WriteField(indexed(name, i), value); err != nil {
				return nil, "", fmt.Errorf("api: write field %s: %w", name, err)
			}
		}
	}
	for _, name := range sortedKeys(f.files) {
		for i, file := range f.files[name] {
			part, err := w.CreateFormFile(indexed(name, i), file.Name)
			if err != nil {
				return nil, "", fmt.Errorf("api: create file part %s: %w", name, err)
			}
			if file.Content != nil {
				if _, err := io.Copy(part, file.Content); err != nil {
					return nil, "", fmt.Errorf("api: copy file %s: %w", file.Name, err)
				}
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("api: close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func indexed(name string, i int) string {
	return name + "[" + strconv.Itoa(i) + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
