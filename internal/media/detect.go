package media

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotVideo = errors.New("not a video file")

// Detect sniffs the MIME type of r and returns it if it is a video type.
func Detect(r io.Reader) (string, error) {
	mime, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to detect mime type: %w", err)
	}

	for m := mime; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return mime.String(), nil
		}
	}

	return mime.String(), ErrNotVideo
}
