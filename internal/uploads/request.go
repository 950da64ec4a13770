package uploads

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"failureforward/internal/errors"
)

// multipartOverhead is the room left around the file for the multipart
// envelope. Stage enforces the exact file limit.
const multipartOverhead = 1 << 20

// LimitRequest caps the body of an upload request for a file limit of
// maxBytes. A declared length over the cap fails at once; a body that
// only turns out too large fails while the form is parsed, see LimitError.
func LimitRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	limit := maxBytes + multipartOverhead
	if r.ContentLength > limit {
		return tooLarge(maxBytes)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return nil
}

// LimitError returns the TooLarge error to report when err comes from
// reading past the cap set by LimitRequest, and nil otherwise.
func LimitError(err error, maxBytes int64) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return tooLarge(maxBytes)
	}
	return nil
}

func tooLarge(maxBytes int64) error {
	return errors.TooLarge(fmt.Sprintf("file exceeds the %d MB limit", maxBytes/(1024*1024)))
}
