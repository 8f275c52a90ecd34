package bse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/ports"
)

// Client pulls announcement records from the exchange portal's public JSON
// endpoint. The field names inside the payload are the portal's, not ours.
type Client struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

var _ ports.FilingSource = (*Client)(nil)

// NewClient wires the announcements endpoint and an HTTP client.
func NewClient(endpoint string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		endpoint:  endpoint,
		client:    client,
		userAgent: "Mozilla/5.0",
	}
}

type announcementRecord struct {
	NewsID     string `json:"NEWSID"`
	Headline   string `json:"HEADLINE"`
	Category   string `json:"CATEGORYNAME"`
	NewsDate   string `json:"NEWS_DT"`
	Attachment string `json:"ATTACHMENTNAME"`
}

type announcementsResponse struct {
	Table []announcementRecord `json:"Table"`
}

// Announcements fetches raw filings for one company over a date range.
// Missing fields decode to empty strings; the caller's classifier treats
// them as such.
func (c *Client) Announcements(ctx context.Context, scripCode string, from, to time.Time) ([]domain.Filing, error) {
	reqURL, err := c.buildURL(scripCode, from, to)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request announcements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal returned %s", resp.Status)
	}

	var payload announcementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode announcements: %w", err)
	}

	filings := make([]domain.Filing, 0, len(payload.Table))
	for _, rec := range payload.Table {
		filings = append(filings, domain.Filing{
			ID:         rec.NewsID,
			Headline:   rec.Headline,
			Category:   rec.Category,
			NewsDate:   rec.NewsDate,
			Attachment: rec.Attachment,
		})
	}

	return filings, nil
}

func (c *Client) buildURL(scripCode string, from, to time.Time) (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid announcements endpoint %s: %w", c.endpoint, err)
	}

	query := parsed.Query()
	query.Set("strScrip", scripCode)
	query.Set("strPrevDate", from.Format("20060102"))
	query.Set("strToDate", to.Format("20060102"))
	query.Set("strType", "C")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
