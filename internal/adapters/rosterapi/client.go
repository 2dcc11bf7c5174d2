// Package rosterapi implements domain.RosterGateway over the roster service's
// JSON HTTP API.
package rosterapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
	"github.com/mjpery-beep/mj-member-sub014/internal/metrics"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Config holds what a client needs to reach the service on behalf of one animator.
type Config struct {
	BaseURL    string
	AnimatorID string
	TokenTTL   time.Duration
}

type client struct {
	http    *http.Client
	baseURL string
	cfg     Config
	issuer  domain.TokenIssuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient returns a gateway that calls the roster service as cfg.AnimatorID.
// issuer may be nil, in which case requests carry no Authorization header.
func NewClient(httpClient *http.Client, cfg Config, issuer domain.TokenIssuer, logger *slog.Logger, m *metrics.Metrics) domain.RosterGateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 5 * time.Minute
	}
	return &client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		cfg:     cfg,
		issuer:  issuer,
		logger:  logger,
		metrics: m,
	}
}

// envelope mirrors the service's {data, error} response, plus the bare
// {message} form some error paths still return.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (c *client) ListEvents(ctx context.Context) (*domain.EventListResponse, error) {
	var out domain.EventListResponse
	if err := c.do(ctx, "list_events", http.MethodGet, "/events", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) FetchEvent(ctx context.Context, eventID int) (*domain.EventResponse, error) {
	var out domain.EventResponse
	if err := c.do(ctx, "fetch_event", http.MethodGet, eventPath(eventID, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ClaimEvent(ctx context.Context, eventID int) (*domain.EventResponse, error) {
	var out domain.EventResponse
	if err := c.do(ctx, "claim_event", http.MethodPost, eventPath(eventID, "/claim"), struct {
		EventID int `json:"eventId"`
	}{eventID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ReleaseEvent(ctx context.Context, eventID int) (*domain.EventResponse, error) {
	var out domain.EventResponse
	if err := c.do(ctx, "release_event", http.MethodPost, eventPath(eventID, "/release"), struct {
		EventID int `json:"eventId"`
	}{eventID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) SaveAttendance(ctx context.Context, req domain.SaveAttendanceRequest) (*domain.SaveAttendanceResponse, error) {
	var out domain.SaveAttendanceResponse
	if err := c.do(ctx, "save_attendance", http.MethodPost, eventPath(req.EventID, "/attendance"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) TogglePayment(ctx context.Context, req domain.TogglePaymentRequest) (*domain.TogglePaymentResponse, error) {
	var out domain.TogglePaymentResponse
	path := eventPath(req.EventID, "/registrations/"+strconv.Itoa(req.RegistrationID)+"/payment")
	if err := c.do(ctx, "toggle_payment", http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) RemoveRegistration(ctx context.Context, req domain.RemoveRegistrationRequest) (*domain.RemoveRegistrationResponse, error) {
	var out domain.RemoveRegistrationResponse
	path := eventPath(req.EventID, "/registrations/"+strconv.Itoa(req.RegistrationID))
	if err := c.do(ctx, "remove_registration", http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) SearchMembers(ctx context.Context, req domain.SearchMembersRequest) (*domain.SearchMembersResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("per_page", strconv.Itoa(req.PerPage))
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Occurrence != "" {
		q.Set("occurrence", req.Occurrence)
	}
	var out domain.SearchMembersResponse
	if err := c.do(ctx, "search_members", http.MethodGet, eventPath(req.EventID, "/members")+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) AddMembers(ctx context.Context, req domain.AddMembersRequest) (*domain.AddMembersResponse, error) {
	var out domain.AddMembersResponse
	if err := c.do(ctx, "add_members", http.MethodPost, eventPath(req.EventID, "/members"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func eventPath(eventID int, suffix string) string {
	return "/events/" + strconv.Itoa(eventID) + suffix
}

func (c *client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveGateway(op, started, err) }()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.issuer != nil {
		token, err := c.issuer.Issue(c.cfg.AnimatorID, c.cfg.TokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call roster service (%s): %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := decodeRemoteError(resp)
		c.logger.DebugContext(ctx, "roster service error", "op", op, "status", resp.StatusCode, "request_id", requestID, "err", rerr)
		return fmt.Errorf("%s: %w", op, rerr)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s: %w", op, &domain.RemoteError{
			Kind:       kindForCode(env.Error.Code, resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    env.Error.Message,
		})
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s: %w", op, errors.New("empty response body"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response data: %w", op, err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) *domain.RemoteError {
	rerr := &domain.RemoteError{StatusCode: resp.StatusCode}
	var env envelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	code := ""
	if json.Unmarshal(raw, &env) == nil {
		if env.Error != nil {
			code = env.Error.Code
			rerr.Message = env.Error.Message
		} else {
			rerr.Message = env.Message
		}
	}
	rerr.Kind = kindForCode(code, resp.StatusCode)
	return rerr
}

func kindForCode(code string, status int) error {
	switch code {
	case "not_found":
		return domain.ErrNotFound
	case "locked", "conflict":
		return domain.ErrLocked
	case "bad_request", "validation":
		return domain.ErrValidation
	}
	switch status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict, http.StatusLocked:
		return domain.ErrLocked
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation
	}
	return domain.ErrTransport
}
