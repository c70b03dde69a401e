// Package knmi provides a client for the KNMI hourly observation service.
package knmi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/weerpunt/weerpunt/internal/provider/resilience"
	"github.com/weerpunt/weerpunt/internal/weather"
)

const (
	// DefaultBaseURL is the KNMI hourly data endpoint.
	DefaultBaseURL = "https://www.daggegevens.knmi.nl/klimatologie/uurgegevens"

	// ProviderName identifies this provider.
	ProviderName = "knmi"
)

// ClientConfig holds configuration for the KNMI client.
type ClientConfig struct {
	// BaseURL is the hourly data endpoint (defaults to DefaultBaseURL).
	BaseURL string

	// StationsPath is the path to the KNMI station metadata file.
	StationsPath string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient HTTPDoer

	// Timeout for individual requests (default: 15s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches hourly observations and station metadata from KNMI.
type Client struct {
	baseURL      string
	stationsPath string
	httpClient   HTTPDoer
}

// NewClient creates a new KNMI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		stationsPath: cfg.StationsPath,
		httpClient:   httpClient,
	}
}

// Name implements weather.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// FetchStations implements weather.Provider. KNMI distributes station
// metadata as a static text file rather than an API resource.
func (c *Client) FetchStations(_ context.Context) ([]*weather.Station, error) {
	f, err := os.Open(c.stationsPath)
	if err != nil {
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()

	stations, err := ParseStations(f)
	if err != nil {
		return nil, err
	}
	return stations, nil
}

// FetchObservations implements weather.Provider. It requests wind speed,
// temperature and global radiation for the day range covering [start, end]
// and trims the parsed rows to the exact hour window.
func (c *Client) FetchObservations(ctx context.Context, start, end time.Time) ([]*weather.Observation, error) {
	startDate, startHour := weather.DateHour(start)
	endDate, endHour := weather.DateHour(end)

	form := url.Values{
		"byear":  {strconv.Itoa(startDate / 10000)},
		"bmonth": {strconv.Itoa(startDate / 100 % 100)},
		"bday":   {strconv.Itoa(startDate % 100)},
		"eyear":  {strconv.Itoa(endDate / 10000)},
		"emonth": {strconv.Itoa(endDate / 100 % 100)},
		"eday":   {strconv.Itoa(endDate % 100)},
		"WIND":   {"FF"},
		"TEMP":   {"T"},
		"SUNR":   {"Q"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from observations endpoint", resp.StatusCode)
	}

	rows, err := ParseObservations(resp.Body)
	if err != nil {
		return nil, err
	}

	return trimWindow(rows, startDate, startHour, endDate, endHour), nil
}

// trimWindow keeps rows whose (date, hour) falls inside the inclusive
// window. KNMI returns whole days, so the boundary days need trimming.
func trimWindow(rows []*weather.Observation, startDate, startHour, endDate, endHour int) []*weather.Observation {
	lo := startDate*100 + startHour
	hi := endDate*100 + endHour

	var kept []*weather.Observation
	for _, row := range rows {
		at := row.Date*100 + row.Hour
		if at >= lo && at <= hi {
			kept = append(kept, row)
		}
	}
	return kept
}
