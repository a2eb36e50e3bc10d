package constants

// HTTP constants
const (
	// DefaultPort is the port the API listens on
	DefaultPort = 8000

	// MaxUploadSize is the maximum file upload size in bytes (10MB)
	MaxUploadSize = 10 << 20

	// UploadFieldFile is the multipart field carrying the photo
	UploadFieldFile = "file"
)

// Response status values returned by the biometric endpoints
const (
	StatusSuccess = "sucesso"
	StatusFailure = "falha"
	StatusError   = "erro"
)
