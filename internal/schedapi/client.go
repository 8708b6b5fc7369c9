// Package schedapi is the client for the external tour scheduling API:
// community information, available tour times, booking, rescheduling and
// cancelling appointments.
package schedapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"vla/internal/domain"
	"vla/internal/metrics"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://nestiolistings.com"

const startLayout = "2006-01-02T15:04:05"

// ErrEmptyID is returned when a community, group or client ID is blank.
var ErrEmptyID = errors.New("schedapi: empty id")

// Config configures a Client.
type Config struct {
	BaseURL string
	// APIKey authenticates virtual-agent endpoints (community info, booking).
	// Per-company keys for the v2 endpoints are passed per call.
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64 // requests per second; <= 0 disables limiting
	Burst      int
	TourType   string
}

// ConfigFrom converts the file configuration.
func ConfigFrom(c domain.SchedulingConfig) Config {
	return Config{
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		Timeout:    time.Duration(c.Timeout) * time.Second,
		MaxRetries: c.MaxRetries,
		RateLimit:  c.RateLimit,
		Burst:      c.Burst,
		TourType:   c.TourType,
	}
}

// Client talks to the scheduling API. Safe for concurrent use.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	apiKey   string
	tourType string
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying transport client (tests use this for
// httptest servers).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http.SetTransport(hc.Transport)
		}
	}
}

// New builds a Client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TourType == "" {
		cfg.TourType = "guided"
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	hc := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryIdempotent)

	c := &Client{
		http:     hc,
		limiter:  rate.NewLimiter(limit, burst),
		apiKey:   cfg.APIKey,
		tourType: cfg.TourType,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// retryIdempotent retries transport errors and 5xx responses, but never for
// POST so a booking is not submitted twice.
func retryIdempotent(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil {
		return err != nil
	}
	if r.Request.Method == http.MethodPost {
		return false
	}
	return err != nil || r.StatusCode() >= 500
}

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	Operation string
	Status    int
	Body      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("schedapi: %s: unexpected status %d: %s", e.Operation, e.Status, e.Body)
}

func (c *Client) request(ctx context.Context, apiKey string) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("schedapi: rate limiter: %w", err)
	}
	return c.http.R().SetContext(ctx).SetBasicAuth(apiKey, ""), nil
}

func requireIDs(op string, ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("schedapi: %s: %w", op, ErrEmptyID)
		}
	}
	return nil
}

func (c *Client) do(op string, send func() (*resty.Response, error)) (*resty.Response, error) {
	start := time.Now()
	resp, err := send()
	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	metrics.ObserveAPI(op, metrics.StatusClass(status), time.Since(start))
	if err != nil {
		c.logger.Warn("scheduling api request failed", "operation", op, "error", err)
		return nil, fmt.Errorf("schedapi: %s: %w", op, err)
	}
	c.logger.Debug("scheduling api request", "operation", op, "status", status, "elapsed", time.Since(start))
	return resp, nil
}

// CommunityInfo fetches the attribute mapping of a community.
func (c *Client) CommunityInfo(ctx context.Context, communityID string) (domain.CommunityInfo, error) {
	if err := requireIDs("community_info", communityID); err != nil {
		return nil, err
	}
	req, err := c.request(ctx, c.apiKey)
	if err != nil {
		return nil, err
	}
	resp, err := c.do("community_info", func() (*resty.Response, error) {
		return req.SetPathParam("community", communityID).Get("/api/virtualagent/communities/{community}/")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Operation: "community_info", Status: resp.StatusCode(), Body: resp.String()}
	}
	var info domain.CommunityInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return nil, fmt.Errorf("schedapi: community_info: decode: %w", err)
	}
	return info, nil
}

// AvailableTimes lists the open tour times for the day of the given date.
func (c *Client) AvailableTimes(ctx context.Context, groupID, apiKey string, day time.Time) ([]string, error) {
	if err := requireIDs("available_times", groupID); err != nil {
		return nil, err
	}
	req, err := c.request(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	var out struct {
		AvailableTimes []string `json:"available_times"`
	}
	resp, err := c.do("available_times", func() (*resty.Response, error) {
		return req.
			SetQueryParam("from_date", day.Format("2006-01-02")).
			SetQueryParam("tour_type", c.tourType).
			SetPathParam("group", groupID).
			SetResult(&out).
			Get("/api/v2/appointments/group/{group}/available-times/")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Operation: "available_times", Status: resp.StatusCode(), Body: resp.String()}
	}
	return out.AvailableTimes, nil
}

// ClientAppointments lists the prospect's existing appointments.
func (c *Client) ClientAppointments(ctx context.Context, clientID, apiKey string) ([]Appointment, error) {
	if err := requireIDs("client_appointments", clientID); err != nil {
		return nil, err
	}
	req, err := c.request(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data struct {
			Appointments []Appointment `json:"appointments"`
		} `json:"data"`
	}
	resp, err := c.do("client_appointments", func() (*resty.Response, error) {
		return req.SetPathParam("client", clientID).SetResult(&out).Get("/api/v2/clients/{client}/appointments")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Operation: "client_appointments", Status: resp.StatusCode(), Body: resp.String()}
	}
	return out.Data.Appointments, nil
}

// Schedule books a new tour for the prospect.
func (c *Client) Schedule(ctx context.Context, clientID, groupID string, start time.Time) (BookingResult, error) {
	if err := requireIDs("schedule", clientID, groupID); err != nil {
		return BookingResult{}, err
	}
	req, err := c.request(ctx, c.apiKey)
	if err != nil {
		return BookingResult{}, err
	}
	body := map[string]any{
		"appointment": map[string]any{
			"start":         start.Format(startLayout),
			"tour_type":     c.tourType,
			"is_video_tour": false,
		},
	}
	resp, err := c.do("schedule", func() (*resty.Response, error) {
		return req.
			SetPathParams(map[string]string{"client": clientID, "group": groupID}).
			SetBody(body).
			Post("/api/virtualagent/clients/{client}/groups/{group}/appointments/")
	})
	if err != nil {
		return BookingResult{}, err
	}
	return decodeBooking("schedule", resp)
}

// Reschedule moves an existing appointment to a new start time.
func (c *Client) Reschedule(ctx context.Context, appointmentID int64, groupID, apiKey string, start time.Time) (BookingResult, error) {
	req, err := c.request(ctx, apiKey)
	if err != nil {
		return BookingResult{}, err
	}
	body := map[string]any{
		"appointment": map[string]any{
			"start":     start.Format(startLayout),
			"group_id":  groupID,
			"tour_type": c.tourType,
		},
	}
	resp, err := c.do("reschedule", func() (*resty.Response, error) {
		return req.
			SetPathParam("appointment", strconv.FormatInt(appointmentID, 10)).
			SetBody(body).
			Patch("/api/v2/appointments/{appointment}/")
	})
	if err != nil {
		return BookingResult{}, err
	}
	return decodeBooking("reschedule", resp)
}

// Cancel deletes an appointment. It reports false when the API did not
// confirm the cancellation.
func (c *Client) Cancel(ctx context.Context, appointmentID int64, apiKey string) (bool, error) {
	req, err := c.request(ctx, apiKey)
	if err != nil {
		return false, err
	}
	resp, err := c.do("cancel", func() (*resty.Response, error) {
		return req.SetPathParam("appointment", strconv.FormatInt(appointmentID, 10)).Delete("/api/v2/appointments/{appointment}")
	})
	if err != nil {
		return false, err
	}
	return resp.StatusCode() == http.StatusOK, nil
}
