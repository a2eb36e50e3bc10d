// Package fingerprint turns a face image into a descriptor by calling the
// face embedding server.
package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/constants"
	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/rs/zerolog"
)

const faceEndpoint = "/embed/face"

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// FaceClient extracts face descriptors using the embedding server
type FaceClient struct {
	baseURL      string
	dim          int
	maxImageSize int
	client       *http.Client
	log          zerolog.Logger
}

// NewFaceClient creates a client for the embedding server described by cfg.
func NewFaceClient(cfg config.EmbeddingConfig, log zerolog.Logger) *FaceClient {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = constants.DefaultEmbeddingURL
	}
	dim := cfg.Dim
	if dim <= 0 {
		dim = constants.DefaultDescriptorDim
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = constants.DefaultEmbeddingTimeoutSeconds
	}
	return &FaceClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		dim:          dim,
		maxImageSize: cfg.MaxImageSize,
		client:       &http.Client{Timeout: time.Duration(timeout) * time.Second},
		log:          log.With().Str("component", "fingerprint").Logger(),
	}
}

// Dim returns the descriptor length the client accepts.
func (c *FaceClient) Dim() int {
	return c.dim
}

// Extract returns the descriptor of the single face in imageData.
// Zero or several faces, an undecodable image, or a descriptor of the wrong
// length yield an *ExtractionError. Transport failures wrap ErrEmbeddingUnavailable.
func (c *FaceClient) Extract(ctx context.Context, imageData []byte) (database.Descriptor, error) {
	if _, _, err := CheckImage(imageData); err != nil {
		return nil, &ExtractionError{Reason: ReasonUndecodableImage, Err: err}
	}

	if c.maxImageSize > 0 {
		resized, err := ResizeImage(imageData, c.maxImageSize)
		if err != nil {
			return nil, &ExtractionError{Reason: ReasonUndecodableImage, Err: err}
		}
		imageData = resized
	}

	resp, err := c.ComputeFaceEmbeddings(ctx, imageData)
	if err != nil {
		return nil, err
	}

	faces := max(resp.FacesCount, len(resp.Faces))
	switch {
	case faces == 0:
		return nil, &ExtractionError{Reason: ReasonNoFace}
	case faces > 1:
		return nil, &ExtractionError{Reason: ReasonMultipleFaces, Faces: faces}
	case len(resp.Faces) == 0:
		return nil, &ExtractionError{Reason: ReasonBadDescriptor, Faces: 1, Err: errors.New("face reported without embedding")}
	}

	embedding := resp.Faces[0].Embedding
	if len(embedding) != c.dim {
		return nil, &ExtractionError{
			Reason: ReasonBadDescriptor,
			Faces:  1,
			Err:    fmt.Errorf("descriptor has %d values, expected %d", len(embedding), c.dim),
		}
	}
	for i, v := range embedding {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ExtractionError{
				Reason: ReasonBadDescriptor,
				Faces:  1,
				Err:    fmt.Errorf("descriptor value %d is not finite", i),
			}
		}
	}

	c.log.Debug().
		Str("model", resp.Model).
		Float64("det_score", resp.Faces[0].DetScore).
		Msg("face descriptor extracted")
	return database.Descriptor(embedding), nil
}

// ComputeFaceEmbeddings detects faces and computes their embeddings
func (c *FaceClient) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, faceEndpoint, imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrEmbeddingUnavailable, err)
	}
	return &faceResp, nil
}

// postMultipartImage posts the image as the multipart field "file" with a
// Content-Type detected from its magic bytes.
func (c *FaceClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrEmbeddingUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		// The server could not read the image.
		return nil, &ExtractionError{
			Reason: ReasonUndecodableImage,
			Err:    fmt.Errorf("embedding server status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
