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

// AccessKeyField is the form field carrying the access key.
const AccessKeyField = "accessKey"

// Payload is a fully built multipart/form-data body.
//
// The body is kept in memory so that every attempt of a call sends
// identical bytes.
type Payload struct {
	// Body is the encoded multipart body.
	Body []byte

	// ContentType is the Content-Type header value, including the boundary.
	ContentType string

	// HasAccessKey is true when the body carries the access key field.
	HasAccessKey bool
}

// Reader returns a fresh reader over the body.
func (p *Payload) Reader() io.Reader {
	return bytes.NewReader(p.Body)
}

// BuildPayload encodes params as multipart/form-data.
//
// When accessKey is non-empty it is written as the first field. File values
// are opened here and closed before BuildPayload returns.
//
// Example:
//
//	var params httpclient.Params
//	params.Set("outputName", httpclient.String("report.pdf"))
//	params.Set("file", httpclient.File{Path: "/tmp/report.docx"})
//
//	payload, err := httpclient.BuildPayload(accessKey, &params)
func BuildPayload(accessKey string, params *Params) (*Payload, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if accessKey != "" {
		if err := writer.WriteField(AccessKeyField, accessKey); err != nil {
			return nil, err
		}
	}

	if params != nil {
		for _, field := range params.fields {
			if err := writeField(writer, field); err != nil {
				return nil, fmt.Errorf("field %q: %w", field.Name, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return &Payload{
		Body:         body.Bytes(),
		ContentType:  writer.FormDataContentType(),
		HasAccessKey: accessKey != "",
	}, nil
}

// writeField writes one field as one or more parts.
func writeField(writer *multipart.Writer, field Field) error {
	switch v := field.Value.(type) {
	case String:
		return writer.WriteField(field.Name, v.text())
	case Bool:
		return writer.WriteField(field.Name, v.text())
	case Int:
		return writer.WriteField(field.Name, v.text())
	case StringList:
		for _, s := range v {
			if err := writer.WriteField(field.Name, s); err != nil {
				return err
			}
		}
		return nil
	case File:
		f, err := os.Open(v.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeFilePart(writer, field.Name, filepath.Base(v.Path), f)
	case Stream:
		if v.Reader == nil {
			return fmt.Errorf("stream %q has no reader", v.FileName)
		}
		return writeFilePart(writer, field.Name, v.FileName, v.Reader)
	case Bytes:
		return writeFilePart(writer, field.Name, v.FileName, bytes.NewReader(v.Data))
	default:
		return fmt.Errorf("unsupported value type %T", field.Value)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeFilePart writes a file part with an explicit octet-stream content type.
func writeFilePart(writer *multipart.Writer, fieldName, fileName string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fieldName), quoteEscaper.Replace(fileName)))
	h.Set("Content-Type", "application/octet-stream")

	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}

	_, err = io.Copy(part, r)
	return err
}
