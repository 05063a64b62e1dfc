// Package faceapi is the client for the external face-comparison
// provider. The provider is an untrusted network dependency: its output
// is range-validated by the caller and any failure maps to a distinct
// service-error category, never to a match or mismatch.
package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CompareResult is the provider's verdict for one comparison.
type CompareResult struct {
	// Confidence is a similarity score in [0, 100].
	Confidence float64 `json:"confidence"`
	// Thresholds maps provider-specific false-accept-rate labels to
	// suggested minimum confidences. Optional.
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
}

// Comparer is the provider contract consumed by the match policy.
type Comparer interface {
	Compare(ctx context.Context, enrollmentToken, image string) (CompareResult, error)
}

// Client talks to the face comparison service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the given base URL with a 10s timeout on
// the outbound HTTP client; comparisons are CPU-heavy on the provider side.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type compareRequest struct {
	EnrollmentToken string `json:"enrollment_token"`
	Image           string `json:"image"`
}

// Compare submits the stored enrollment token and a freshly captured
// image. Returns an error for any transport, status or decode failure.
func (c *Client) Compare(ctx context.Context, enrollmentToken, image string) (CompareResult, error) {
	body, err := json.Marshal(compareRequest{
		EnrollmentToken: enrollmentToken,
		Image:           image,
	})
	if err != nil {
		return CompareResult{}, fmt.Errorf("faceapi: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compare", bytes.NewReader(body))
	if err != nil {
		return CompareResult{}, fmt.Errorf("faceapi: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CompareResult{}, fmt.Errorf("faceapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CompareResult{}, fmt.Errorf("faceapi: provider returned status %d", resp.StatusCode)
	}

	var result CompareResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CompareResult{}, fmt.Errorf("faceapi: decoding response: %w", err)
	}
	return result, nil
}
