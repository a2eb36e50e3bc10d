// Package facematch implements identity matching over enrolled face descriptors.
// Registration and authentication both go through the same Matcher.
package facematch

import (
	"math"

	"github.com/kozaktomas/face-auth/internal/database"
)

// Result is the outcome of a match: either Matched or NotFound.
type Result interface {
	isResult()
}

// Matched is returned when the closest stored descriptor is within tolerance.
type Matched struct {
	Identity database.Identity
	Distance float64
}

// NotFound is returned when nothing was within tolerance.
// BestDistance is +Inf when no descriptor could be compared.
type NotFound struct {
	BestDistance float64
	Compared     int
}

func (Matched) isResult()  {}
func (NotFound) isResult() {}

// AsMatched unwraps r when it is a match.
func AsMatched(r Result) (Matched, bool) {
	m, ok := r.(Matched)
	return m, ok
}

// notFound builds an empty NotFound result.
func notFound() NotFound {
	return NotFound{BestDistance: math.Inf(1)}
}
