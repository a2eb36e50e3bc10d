package fingerprint

import (
	"errors"
	"fmt"
)

// Extraction failure reasons, also used as metric labels.
const (
	ReasonNoFace           = "no_face"
	ReasonMultipleFaces    = "multiple_faces"
	ReasonUndecodableImage = "undecodable_image"
	ReasonBadDescriptor    = "bad_descriptor"
)

// ErrExtraction matches every ExtractionError via errors.Is.
var ErrExtraction = errors.New("face descriptor extraction failed")

// ErrEmbeddingUnavailable is returned when the embedding server cannot be
// reached or answers with a server error.
var ErrEmbeddingUnavailable = errors.New("embedding server unavailable")

// ExtractionError reports why an image did not yield exactly one descriptor.
type ExtractionError struct {
	Reason string
	Faces  int
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := ErrExtraction.Error() + ": " + e.Reason
	if e.Reason == ReasonMultipleFaces {
		msg = fmt.Sprintf("%s (%d faces)", msg, e.Faces)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ReasonOf returns the extraction failure reason carried by err, if any.
func ReasonOf(err error) (string, bool) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Reason, true
	}
	return "", false
}
