/*
	Copyright 2023 Cognitive3D

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		   http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
)

var (
	ErrNoParts = errors.New("multipart payload requires at least one part")
)

// Part binds a form field name to the local file whose bytes back it.
// The uploaded filename is always the basename of Path.
type Part struct {
	Field string
	Path  string
}

// Payload is a fully framed multipart/form-data body together with the
// Content-Type header value that carries its boundary.
type Payload struct {
	Body        []byte
	ContentType string
}

// Encode frames the given parts into a multipart/form-data payload with a
// random boundary. All file paths are validated before any bytes are read, so
// a missing file never produces a partial encode.
func Encode(parts []Part) (*Payload, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}

	for _, part := range parts {
		info, err := os.Stat(part.Path)
		if err != nil {
			return nil, fmt.Errorf("error validating multipart field %q: %w", part.Field, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("error validating multipart field %q: %s is a directory", part.Field, part.Path)
		}
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for _, part := range parts {
		file, err := os.Open(part.Path)
		if err != nil {
			return nil, fmt.Errorf("error opening multipart field %q: %w", part.Field, err)
		}
		err = addPart(writer, part.Field, filepath.Base(part.Path), "application/octet-stream", file)
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("error adding multipart field %q: %w", part.Field, err)
		}
	}

	err := writer.Close()
	if err != nil {
		return nil, fmt.Errorf("error closing multipart writer: %w", err)
	}

	return &Payload{
		Body:        body.Bytes(),
		ContentType: writer.FormDataContentType(),
	}, nil
}

// EncodeFile frames a single file as a one-part payload.
func EncodeFile(field string, path string) (*Payload, error) {
	return Encode([]Part{{Field: field, Path: path}})
}

func addPart(w *multipart.Writer, name string, filename string, contentType string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, name, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}
