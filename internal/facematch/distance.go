package facematch

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/face-auth/internal/database"
)

// ErrDimensionMismatch is returned when two descriptors differ in length.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// EuclideanDistance computes the L2 distance between two descriptors.
// Returns 0 for identical descriptors.
func EuclideanDistance(a, b database.Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}
