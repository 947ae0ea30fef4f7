// Package planclient is the HTTP client for the recommendation service. Every
// call takes a context, carries the injected Session's bearer credential and
// maps failures onto the mealplan error categories.
package planclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lg/mealmind-go-api/internal/logger"
	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

// Client talks to the /api surface of the recommendation service.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	log     *logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 15s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for baseURL (e.g. "http://localhost:3000/api").
func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log)
	return c
}

// Session returns the session the client was built with.
func (c *Client) Session() *Session {
	return c.session
}

/* ─── Transport ──────────────────────────────────────────────────────── */

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// A 401 clears the session before the error is returned.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := mealplan.NewRequestID()
	req.Header.Set("X-Request-ID", requestID)
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("request done", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: respBytes}
		var eb mealplan.ErrorBody
		if json.Unmarshal(respBytes, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
			apiErr.Code = eb.Code
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.log.Info("credential rejected, clearing session", "path", path)
			c.session.Clear()
		}
		return apiErr
	}

	if out == nil || len(respBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

/* ─── Auth ───────────────────────────────────────────────────────────── */

// Signup creates an account. It does not sign in.
func (c *Client) Signup(ctx context.Context, req mealplan.SignupRequest) (mealplan.SignupResponse, error) {
	var out mealplan.SignupResponse
	if req.Email == "" || req.Password == "" || req.Username == "" {
		return out, fmt.Errorf("%w: email, username and password are required", mealplan.ErrValidation)
	}
	err := c.do(ctx, http.MethodPost, "/auth/signup", req, &out)
	return out, err
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (mealplan.LoginResponse, error) {
	var out mealplan.LoginResponse
	if email == "" || password == "" {
		return out, fmt.Errorf("%w: email and password are required", mealplan.ErrValidation)
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", mealplan.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return out, err
	}
	c.session.set(out.AccessToken, out.User, out.HasProfile)
	return out, nil
}

// Me refreshes the cached account from the service. A rejected credential
// clears the session.
func (c *Client) Me(ctx context.Context) (mealplan.MeResponse, error) {
	var out mealplan.MeResponse
	if !c.session.Authenticated() {
		return out, mealplan.ErrUnauthorized
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return out, err
	}
	c.session.set("", out.User, out.HasProfile)
	return out, nil
}

// Logout clears the session. Tokens are stateless so nothing is sent.
func (c *Client) Logout() {
	c.session.Clear()
}

/* ─── Profile ────────────────────────────────────────────────────────── */

func (c *Client) GetProfile(ctx context.Context) (mealplan.StoredProfile, error) {
	var out mealplan.ProfileResponse
	err := c.do(ctx, http.MethodGet, "/profile/get", nil, &out)
	return out.Profile, err
}

// SetupProfile validates p locally, then creates (or replaces) the profile.
func (c *Client) SetupProfile(ctx context.Context, p nutrition.Profile) (mealplan.StoredProfile, error) {
	if err := p.Validate(); err != nil {
		return mealplan.StoredProfile{}, fmt.Errorf("%w: %v", mealplan.ErrValidation, err)
	}
	var out mealplan.ProfileResponse
	if err := c.do(ctx, http.MethodPost, "/profile/setup", p, &out); err != nil {
		return out.Profile, err
	}
	c.session.setHasProfile(true)
	return out.Profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, patch mealplan.ProfilePatch) (mealplan.StoredProfile, error) {
	var out mealplan.ProfileResponse
	err := c.do(ctx, http.MethodPut, "/profile/update", patch, &out)
	return out.Profile, err
}

// ResetProfile deletes the profile so setup can run again.
func (c *Client) ResetProfile(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/profile/reset", nil, nil); err != nil {
		return err
	}
	c.session.setHasProfile(false)
	return nil
}

/* ─── Recommendations ────────────────────────────────────────────────── */

func (c *Client) Today(ctx context.Context) (mealplan.TodayResponse, error) {
	var out mealplan.TodayResponse
	err := c.do(ctx, http.MethodGet, "/recommendations/today", nil, &out)
	return out, err
}

// Day fetches the plan for d. A missing plan is reported as
// mealplan.ErrNotFound.
func (c *Client) Day(ctx context.Context, d mealplan.Date) (mealplan.DayResponse, error) {
	var out mealplan.DayResponse
	err := c.do(ctx, http.MethodGet, "/recommendations/day/"+d.String(), nil, &out)
	if err == nil && out.Recommendation == nil {
		return out, fmt.Errorf("day %s: %w", d, mealplan.ErrNotFound)
	}
	return out, err
}

func (c *Client) GenerateForDate(ctx context.Context, d mealplan.Date) (mealplan.GenerateForDateResponse, error) {
	var out mealplan.GenerateForDateResponse
	err := c.do(ctx, http.MethodPost, "/recommendations/generate_for_date",
		mealplan.GenerateForDateRequest{Date: d.String()}, &out)
	return out, err
}

func (c *Client) GenerateMonthAhead(ctx context.Context) (mealplan.MonthAheadResponse, error) {
	var out mealplan.MonthAheadResponse
	err := c.do(ctx, http.MethodPost, "/recommendations/generate_month_ahead", nil, &out)
	return out, err
}

// Regenerate replaces one slot of the plan for d.
func (c *Client) Regenerate(ctx context.Context, d mealplan.Date, slot mealplan.Slot) (mealplan.RegenerateResponse, error) {
	var out mealplan.RegenerateResponse
	err := c.do(ctx, http.MethodPost, "/recommendations/regenerate/"+url.PathEscape(string(slot)),
		mealplan.RegenerateRequest{Date: d.String()}, &out)
	return out, err
}

// Checkin records completion for d. At least one flag must be true. When the
// day is already checked in the error matches mealplan.ErrAlreadyCheckedIn and
// out.Checkin holds the stored record if the service sent it.
func (c *Client) Checkin(ctx context.Context, d mealplan.Date, food, activity bool) (mealplan.CheckinResponse, error) {
	var out mealplan.CheckinResponse
	if !food && !activity {
		return out, fmt.Errorf("%w: mark food or activity as completed", mealplan.ErrValidation)
	}
	err := c.do(ctx, http.MethodPost, "/recommendations/checkin", mealplan.CheckinRequest{
		FoodCompleted:     &food,
		ActivityCompleted: &activity,
		Date:              d.String(),
	}, &out)
	var apiErr *APIError
	if errors.Is(err, mealplan.ErrAlreadyCheckedIn) && errors.As(err, &apiErr) {
		// The conflict body carries the stored check-in.
		var conflict struct {
			Checkin *mealplan.Checkin `json:"checkin"`
		}
		if json.Unmarshal(apiErr.Body, &conflict) == nil && conflict.Checkin != nil {
			out.Checkin = *conflict.Checkin
		}
	}
	return out, err
}

func (c *Client) Month(ctx context.Context, year, month int) (mealplan.MonthResponse, error) {
	var out mealplan.MonthResponse
	if month < 1 || month > 12 {
		return out, fmt.Errorf("%w: month must be 1-12", mealplan.ErrValidation)
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/recommendations/month/%d/%d", year, month), nil, &out)
	return out, err
}

func (c *Client) History(ctx context.Context) (mealplan.HistoryResponse, error) {
	var out mealplan.HistoryResponse
	err := c.do(ctx, http.MethodGet, "/recommendations/history", nil, &out)
	return out, err
}

/* ─── Progress ───────────────────────────────────────────────────────── */

// RecordWeight logs a weigh-in for d. A zero d records it for today on the
// service's clock.
func (c *Client) RecordWeight(ctx context.Context, weight float64, d mealplan.Date) (mealplan.WeightRecordResponse, error) {
	var out mealplan.WeightRecordResponse
	if weight <= 0 {
		return out, fmt.Errorf("%w: weight must be positive", mealplan.ErrValidation)
	}
	req := mealplan.WeightRecordRequest{Weight: &weight}
	if !d.IsZero() {
		req.Date = d.String()
	}
	err := c.do(ctx, http.MethodPost, "/progress/weight/record", req, &out)
	return out, err
}

// WeightLog lists weigh-ins in [from, to]. Zero bounds use the service
// defaults.
func (c *Client) WeightLog(ctx context.Context, from, to mealplan.Date) ([]mealplan.WeightEntry, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("start", from.String())
	}
	if !to.IsZero() {
		q.Set("end", to.String())
	}
	path := "/progress/weight"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out mealplan.WeightLogResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Entries, err
}

// Adherence summarises the last days of check-ins; zero uses the service
// default window.
func (c *Client) Adherence(ctx context.Context, days int) (mealplan.AdherenceResponse, error) {
	var out mealplan.AdherenceResponse
	path := "/progress/adherence"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (mealplan.UserStatsResponse, error) {
	var out mealplan.UserStatsResponse
	err := c.do(ctx, http.MethodGet, "/progress/stats", nil, &out)
	return out, err
}
