package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/mirassol-cal/app/calendar"
	"github.com/lysyi3m/mirassol-cal/app/sync"
)

const (
	defaultBaseURL = "https://www.googleapis.com/calendar/v3"
	listPageSize   = 2500
)

var _ sync.RemoteStore = (*Client)(nil)

type tokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client is a Google Calendar API v3 client scoped to the operations the
// reconciler needs plus calendar management.
type Client struct {
	tokens   tokenProvider
	client   *http.Client
	baseURL  string
	timezone string
}

// NewClient creates a calendar API client. Event payloads carry the
// given timezone on their start and end times.
func NewClient(tokens *TokenSource, timezone string) *Client {
	return &Client{
		tokens:   tokens,
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  defaultBaseURL,
		timezone: timezone,
	}
}

type apiEventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type apiEvent struct {
	ID          string       `json:"id,omitempty"`
	Summary     string       `json:"summary"`
	Description string       `json:"description,omitempty"`
	Start       apiEventTime `json:"start"`
	End         apiEventTime `json:"end"`
}

// ListEvents returns every event on the calendar, following pagination
func (c *Client) ListEvents(ctx context.Context, calendarID string) ([]sync.RemoteEvent, error) {
	var events []sync.RemoteEvent
	pageToken := ""

	for {
		path := fmt.Sprintf("/calendars/%s/events?maxResults=%d", url.PathEscape(calendarID), listPageSize)
		if pageToken != "" {
			path += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page struct {
			Items         []apiEvent `json:"items"`
			NextPageToken string     `json:"nextPageToken"`
		}
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			event := sync.RemoteEvent{
				RemoteID:    item.ID,
				Title:       item.Summary,
				Description: item.Description,
			}
			event.Start, _ = parseEventTime(item.Start)
			event.End, _ = parseEventTime(item.End)
			events = append(events, event)
		}

		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}

// CreateEvent inserts one event and returns its remote identifier
func (c *Client) CreateEvent(ctx context.Context, calendarID string, event calendar.Event) (string, error) {
	body := apiEvent{
		Summary:     event.Title,
		Description: event.Description,
		Start:       apiEventTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: c.timezone},
		End:         apiEventTime{DateTime: event.End.Format(time.RFC3339), TimeZone: c.timezone},
	}

	var created apiEvent
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(calendarID))
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteEvent removes one event. An already deleted event is not an
// error; convergence only requires that it is gone.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, remoteID string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(remoteID))
	err := c.do(ctx, http.MethodDelete, path, nil, nil)

	var remoteErr *sync.RemoteError
	if isRemoteError(err, &remoteErr) && (remoteErr.Code == http.StatusNotFound || remoteErr.Code == http.StatusGone) {
		return nil
	}
	return err
}

func isRemoteError(err error, target **sync.RemoteError) bool {
	if err == nil {
		return false
	}
	re, ok := err.(*sync.RemoteError)
	if ok {
		*target = re
	}
	return ok
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &sync.RemoteError{Code: resp.StatusCode, Message: apiErrorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// apiErrorMessage extracts the error message from a Google API error
// envelope, falling back to the raw body.
func apiErrorMessage(data []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(data))
}

func parseEventTime(t apiEventTime) (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.Parse("2006-01-02", t.Date)
	}
	return time.Time{}, fmt.Errorf("event time is empty")
}
