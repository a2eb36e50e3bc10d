// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultTolerance is the maximum Euclidean distance between two descriptors
	// for them to be considered the same person. Lower values = stricter matching
	DefaultTolerance = 0.6

	// DefaultDescriptorDim is the length of the descriptors produced by the
	// face embedding server (dlib ResNet)
	DefaultDescriptorDim = 128
)

// Embedding server constants
const (
	// DefaultEmbeddingURL is where the face embedding server listens by default
	DefaultEmbeddingURL = "http://localhost:8001"

	// DefaultEmbeddingTimeoutSeconds bounds a single extraction request
	DefaultEmbeddingTimeoutSeconds = 30

	// JPEGQuality is used when re-encoding downscaled uploads
	JPEGQuality = 90
)

// DefaultDatabaseURL is a SQLite file in the working directory
const DefaultDatabaseURL = "sqlite://usuarios.db"
