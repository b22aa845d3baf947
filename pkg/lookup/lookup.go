// Package lookup exchanges a card identifier for the patient record held by
// the health records service.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrPatientNotFound is returned when the service does not know the card.
var ErrPatientNotFound = errors.New("patient not found")

// DefaultTimeout bounds one lookup request.
const DefaultTimeout = 10 * time.Second

// Patient is the record returned for a card identifier.
type Patient struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	DateOfBirth      string   `json:"dob"`
	Genotype         string   `json:"genotype"`
	Sex              string   `json:"sex"`
	BloodGroup       string   `json:"blood_group"`
	Height           float64  `json:"height"`
	Disabilities     []string `json:"disabilities"`
	PersonalHistory  []string `json:"personal_history"`
	FamilyHistory    []string `json:"family_history"`
	Medications      []string `json:"medications"`
	Surgeries        []string `json:"surgeries"`
	Allergies        []string `json:"allergies"`
	OrganDonorStatus string   `json:"organ_donor_status"`
	Insurance        string   `json:"insurance"`
	EmergencyContact string   `json:"emergency_contact"`
}

// Client calls GET {base}/{cardID}.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a Client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("lookup: base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("lookup: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("lookup: unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Patient fetches the record for cardID.
func (c *Client) Patient(ctx context.Context, cardID string) (*Patient, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, errors.New("lookup: card identifier is required")
	}

	endpoint := c.base.JoinPath(cardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup: request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "patient lookup",
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, cardID)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lookup: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p Patient
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("lookup: decode patient: %w", err)
	}
	return &p, nil
}
