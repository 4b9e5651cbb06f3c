package snapsi

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLength is how much of an upload is inspected to detect its type.
const sniffLength = 3072

// checkContent reads the head of content and makes sure the bytes are of the
// declared type. The returned reader yields the complete content again.
func checkContent(declared string, content io.Reader) (io.Reader, error) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read content: %w", err)
	}
	head = head[:n]

	if n == 0 {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidInput)
	}

	detected := mimetype.Detect(head)
	if !detected.Is(declared) {
		return nil, fmt.Errorf("%w: content is %s, not %s", ErrInvalidInput, detected.String(), declared)
	}

	return io.MultiReader(bytes.NewReader(head), content), nil
}
