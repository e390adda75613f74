// Package detector is the client for the external vehicle counting
// service. Counting is deterministic and authoritative when available;
// every failure mode degrades to a nil result so the analysis engine
// falls back to qualitative assessment instead of erroring out.
package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Level is a coarse traffic label derived from a directional count.
type Level string

const (
	LevelLight    Level = "light"
	LevelModerate Level = "moderate"
	LevelHeavy    Level = "heavy"
	// LevelSevere is never derived from counts. It is a qualitative
	// judgment the generative stage may apply when frames show backup
	// beyond the visible lanes.
	LevelSevere Level = "severe"
)

// LevelFor maps a directional vehicle count to a traffic level.
func LevelFor(count int) Level {
	switch {
	case count <= 3:
		return LevelLight
	case count <= 10:
		return LevelModerate
	default:
		return LevelHeavy
	}
}

// ClassCounts breaks a directional count down by vehicle class.
type ClassCounts struct {
	Cars   int `json:"cars"`
	Trucks int `json:"trucks"`
	Buses  int `json:"buses"`
}

// Breakdown holds the per-class counts for both directions.
type Breakdown struct {
	LSToSA ClassCounts `json:"LS_to_SA"`
	SAToLS ClassCounts `json:"SA_to_LS"`
}

// Counts is one detector response. DirectionUncertain signals that
// vehicle-to-direction assignment could not be made reliably and the
// counts must not be trusted for directional display.
type Counts struct {
	LSToSA             int       `json:"LS_to_SA"`
	SAToLS             int       `json:"SA_to_LS"`
	Total              int       `json:"total"`
	DirectionUncertain bool      `json:"direction_uncertain"`
	Breakdown          Breakdown `json:"breakdown"`
}

type countRequest struct {
	Image      string `json:"image"`
	CameraView string `json:"camera_view"`
}

// Client calls the counting service over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a detector client. An empty endpoint produces a
// client whose Count always returns nil, which keeps the degraded path
// identical to a detector outage.
func NewClient(endpoint string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Enabled reports whether a counting endpoint is configured.
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

// Count sends the bridge frame to the counting service and returns the
// directional counts, or nil when the detector is unavailable or the
// response is unusable. Never returns an error: degraded counting is an
// expected condition, not a failure of the request.
func (c *Client) Count(ctx context.Context, image []byte, cameraView string) *Counts {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(countRequest{
		Image:      base64.StdEncoding.EncodeToString(image),
		CameraView: cameraView,
	})
	if err != nil {
		c.logger.Printf("[Detector] Failed to encode count request: %v", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.logger.Printf("[Detector] Failed to build count request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("[Detector] Count request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Printf("[Detector] Count request returned status %d: %s", resp.StatusCode, string(respBody))
		return nil
	}

	var counts Counts
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		c.logger.Printf("[Detector] Failed to decode count response: %v", err)
		return nil
	}

	if counts.DirectionUncertain {
		// Still logged for diagnostics; callers treat it as no result.
		c.logger.Printf("[Detector] Direction uncertain (total %d), counts not trusted for directional display", counts.Total)
	}
	return &counts
}

// Summary renders counts for logs and prompts.
func (c *Counts) Summary() string {
	return fmt.Sprintf("LS→SA %d (%s), SA→LS %d (%s), total %d",
		c.LSToSA, LevelFor(c.LSToSA), c.SAToLS, LevelFor(c.SAToLS), c.Total)
}

// Usable reports whether the counts may seed directional traffic levels.
func (c *Counts) Usable() bool {
	return c != nil && !c.DirectionUncertain
}
