package docmosis

import (
	"errors"
	"io"
	"os"

	"github.com/kroma-labs/docmosis-go/httpclient"
)

// StatusResponse is the result of a call whose success body is not used.
type StatusResponse struct {
	httpclient.Envelope
}

// DocumentResponse is the result of a call returning a document, an image
// or a zip archive.
//
// When Succeeded is true the content is available exactly once through
// WriteTo, SaveTo or Body. Any of them closes the content when done.
// Call Close when the content is not needed.
type DocumentResponse struct {
	httpclient.Envelope
}

// Compile-time interface check.
var _ io.WriterTo = (*DocumentResponse)(nil)

// WriteTo copies the content to w and closes it.
func (r *DocumentResponse) WriteTo(w io.Writer) (int64, error) {
	if !r.Succeeded() || r.Body == nil {
		return 0, ErrNoContent
	}
	defer r.Close()

	return io.Copy(w, r.Body)
}

// SaveTo writes the content to the file at path, creating or truncating it.
// A partially written file is removed.
func (r *DocumentResponse) SaveTo(path string) error {
	if !r.Succeeded() || r.Body == nil {
		return ErrNoContent
	}

	f, err := os.Create(path)
	if err != nil {
		r.Close()
		return err
	}

	_, err = r.WriteTo(f)
	err = errors.Join(err, f.Close())
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
