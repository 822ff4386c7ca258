package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
)

const (
	defaultFeedSheet     = "Dashboard_Feed"
	defaultInterestSheet = "Responses"
	defaultTimeout       = 15 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// WriteStatus classifies the `result` string returned by a write endpoint.
type WriteStatus int

const (
	WriteAccepted WriteStatus = iota
	WriteDuplicate
	WriteRejected
)

func (s WriteStatus) String() string {
	switch s {
	case WriteDuplicate:
		return "duplicate"
	case WriteRejected:
		return "rejected"
	default:
		return "accepted"
	}
}

// WriteResult is the decoded reply of a write endpoint.
type WriteResult struct {
	Status WriteStatus
	Result string
}

// ClassifyResult maps a write endpoint's result text to a [WriteStatus].
//
// "Error..." is a rejection and "Skipped..." a duplicate. Anything else, including an empty result, is an
// acceptance.
func ClassifyResult(result string) WriteStatus {
	switch {
	case strings.HasPrefix(result, "Error"):
		return WriteRejected
	case strings.HasPrefix(result, "Skipped"):
		return WriteDuplicate
	default:
		return WriteAccepted
	}
}

// CatalogOpts configures a [CatalogClient].
type CatalogOpts struct {
	FeedURL       string
	FeedSheet     string
	InterestURL   string
	InterestSheet string
	SubmitURL     string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// CatalogOptsFromConfig builds [CatalogOpts] from the catalog section of the config file.
func CatalogOptsFromConfig(cfg shared.CatalogConfig) CatalogOpts {
	return CatalogOpts{
		FeedURL:       cfg.FeedURL,
		FeedSheet:     cfg.FeedSheet,
		InterestURL:   cfg.InterestURL,
		InterestSheet: cfg.InterestSheet,
		SubmitURL:     cfg.SubmitURL,
		Timeout:       cfg.Timeout.Duration,
	}
}

// CatalogClient talks to the catalog feed and the two submission endpoints.
type CatalogClient struct {
	feedURL       string
	feedSheet     string
	interestURL   string
	interestSheet string
	submitURL     string
	httpClient    *http.Client
}

// NewCatalogClient creates a catalog client. The feed URL is required; the write URLs are checked when used.
func NewCatalogClient(opts CatalogOpts) (*CatalogClient, error) {
	if opts.FeedURL == "" {
		return nil, fmt.Errorf("%w: catalog feed_url", shared.ErrMissingConfig)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	c := &CatalogClient{
		feedURL:       opts.FeedURL,
		feedSheet:     opts.FeedSheet,
		interestURL:   opts.InterestURL,
		interestSheet: opts.InterestSheet,
		submitURL:     opts.SubmitURL,
		httpClient:    client,
	}
	if c.feedSheet == "" {
		c.feedSheet = defaultFeedSheet
	}
	if c.interestSheet == "" {
		c.interestSheet = defaultInterestSheet
	}
	if c.interestURL == "" {
		c.interestURL = c.feedURL
	}
	return c, nil
}

// FetchRecords reads the full catalog.
//
// Any failure, including an `{"error": ...}` body or a malformed payload, is reported as
// [shared.ErrSourceUnavailable] so the caller can keep its previous snapshot.
func (c *CatalogClient) FetchRecords(ctx context.Context) ([]models.CourseRecord, error) {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid feed url: %v", shared.ErrSourceUnavailable, err)
	}
	q := u.Query()
	q.Set("sheetName", c.feedSheet)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrSourceUnavailable, err)
	}

	return decodeFeed(body)
}

func decodeFeed(body []byte) ([]models.CourseRecord, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			return nil, fmt.Errorf("%w: %s", shared.ErrSourceUnavailable, e.Error)
		}
		return nil, fmt.Errorf("%w: expected a list of records", shared.ErrSourceUnavailable)
	}

	var records []models.CourseRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", shared.ErrSourceUnavailable, err)
	}
	if records == nil {
		records = []models.CourseRecord{}
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate record id %s", shared.ErrSourceUnavailable, rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}
	return records, nil
}

// RegisterInterest records the identity's interest in an existing record.
func (c *CatalogClient) RegisterInterest(ctx context.Context, recordID string, who models.Identity) (*WriteResult, error) {
	form := url.Values{}
	form.Set("sheetName", c.interestSheet)
	form.Set("id", recordID)
	form.Set("name", who.DisplayName)
	form.Set("email", who.Email)
	return c.postForm(ctx, c.interestURL, form)
}

// SubmitCourse proposes a new record on behalf of the identity.
func (c *CatalogClient) SubmitCourse(ctx context.Context, course models.CourseForm, who models.Identity) (*WriteResult, error) {
	if c.submitURL == "" {
		return nil, fmt.Errorf("%w: catalog submit_url", shared.ErrMissingConfig)
	}
	form := url.Values{}
	form.Set("college", course.Institution)
	form.Set("semester", course.Term)
	form.Set("course", course.Title)
	form.Set("department", course.Department)
	form.Set("name", who.DisplayName)
	form.Set("email", who.Email)
	return c.postForm(ctx, c.submitURL, form)
}

// postForm sends a form-encoded POST and decodes the `{"result": ...}` reply.
//
// A missing response or a non-2xx status is [shared.ErrTransport].
func (c *CatalogClient) postForm(ctx context.Context, endpoint string, form url.Values) (*WriteResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrTransport, resp.StatusCode)
	}

	var payload struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrTransport, err)
	}

	return &WriteResult{Status: ClassifyResult(payload.Result), Result: payload.Result}, nil
}
