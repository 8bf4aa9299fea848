package client

import (
	"bytes"
	"io"
	"mime/multipart"
)

// form builds a multipart body, keeping the first error.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(name string, a *Attachment) {
	if f.err != nil || a == nil {
		return
	}
	part, err := f.w.CreateFormFile(name, a.Filename)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = io.Copy(part, a.Content)
}

func (f *form) close() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return &f.buf, f.w.FormDataContentType(), nil
}
