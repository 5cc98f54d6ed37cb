package scanfeedhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type scanEventsResp struct {
	ScanEvents []scanfeed.RawScanEvent `json:"ScanEvents"`
}

func (c *Client) FetchScanEvents(ctx context.Context, afterEventID string, limit int) ([]scanfeed.RawScanEvent, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	u.Path = "/v1/scans/scanevents"

	q := u.Query()
	if afterEventID != "" {
		q.Set("FromEventId", afterEventID)
	}
	q.Set("Limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("User-Agent", "scan-worker/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Сетевые сбои и таймауты считаем временными: воркер их ретраит.
		return nil, scanfeed.Transient(errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 5 {
		return nil, scanfeed.Transient(fmt.Errorf("scan feed http %d", resp.StatusCode))
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("scan feed http %d", resp.StatusCode)
	}

	var r scanEventsResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return r.ScanEvents, nil
}
