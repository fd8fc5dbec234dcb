package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
)

const defaultTimeout = 60 * time.Second

// Client talks to an HTTP segmentation model server.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// segmentRequest is the JSON body sent to the model server.
type segmentRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64 PNG
}

// segmentResponse is the JSON body returned by the model server.
// Mask is base64 raw 8-bit gray rows, width*height bytes.
type segmentResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mask   string `json:"mask"`
}

// NewClient creates a segmentation client for the given server URL and model.
func NewClient(serverURL, model string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8188"
	}
	if model == "" {
		return nil, fmt.Errorf("segmentation model name is required")
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Segment submits the frame to the model server and decodes the returned mask.
func (c *Client) Segment(ctx context.Context, frame *image.NRGBA) (*image.Gray, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	req := segmentRequest{
		Model: c.model,
		Image: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}

	respBody, err := c.sendRequest(ctx, "/v1/segment", req)
	if err != nil {
		return nil, fmt.Errorf("segmentation request failed: %w", err)
	}

	var resp segmentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: undecodable response: %v", ErrMalformedMask, err)
	}

	return maskFromResponse(frame.Bounds(), resp)
}

func (c *Client) sendRequest(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	logger.WithComponent("segment").Debug().
		Str("model", c.model).
		Dur("latency", time.Since(start)).
		Int("bytes", len(respBody)).
		Msg("Segmentation call completed")

	return respBody, nil
}

// maskFromResponse validates the model output against the processed frame
// bounds and builds the gray mask.
func maskFromResponse(bounds image.Rectangle, resp segmentResponse) (*image.Gray, error) {
	if resp.Width != bounds.Dx() || resp.Height != bounds.Dy() {
		return nil, fmt.Errorf("%w: mask is %dx%d, frame is %dx%d",
			ErrMalformedMask, resp.Width, resp.Height, bounds.Dx(), bounds.Dy())
	}

	pix, err := base64.StdEncoding.DecodeString(resp.Mask)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable mask payload: %v", ErrMalformedMask, err)
	}
	if len(pix) != resp.Width*resp.Height {
		return nil, fmt.Errorf("%w: mask payload is %d bytes, expected %d",
			ErrMalformedMask, len(pix), resp.Width*resp.Height)
	}

	mask := &image.Gray{
		Pix:    pix,
		Stride: resp.Width,
		Rect:   image.Rect(0, 0, resp.Width, resp.Height),
	}
	return mask, nil
}
