package gcal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/lysyi3m/mirassol-cal/app/sync"
)

// Calendar describes one entry of the user's calendar list
type Calendar struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timeZone,omitempty"`
	ColorID     string `json:"colorId,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
}

// Manager handles calendar-level operations: discovery, creation,
// deletion and sharing. The resolved calendar id is cached in a local
// file so repeated runs skip the list call.
type Manager struct {
	client *Client
	idFile string
}

// NewManager creates a calendar manager caching the resolved id in idFile
func NewManager(client *Client, idFile string) *Manager {
	return &Manager{client: client, idFile: idFile}
}

// ListCalendars returns every calendar visible to the service account
func (m *Manager) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var calendars []Calendar
	pageToken := ""

	for {
		path := "/users/me/calendarList"
		if pageToken != "" {
			path += "?pageToken=" + url.QueryEscape(pageToken)
		}

		var page struct {
			Items         []Calendar `json:"items"`
			NextPageToken string     `json:"nextPageToken"`
		}
		if err := m.client.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}

		calendars = append(calendars, page.Items...)
		if page.NextPageToken == "" {
			return calendars, nil
		}
		pageToken = page.NextPageToken
	}
}

// FindCalendar returns the id of the calendar with the given name, or an
// empty string when none matches. Name comparison is case-insensitive.
func (m *Manager) FindCalendar(ctx context.Context, name string) (string, error) {
	calendars, err := m.ListCalendars(ctx)
	if err != nil {
		return "", err
	}

	for _, cal := range calendars {
		if strings.EqualFold(cal.Summary, name) {
			return cal.ID, nil
		}
	}
	return "", nil
}

// GetOrCreate resolves the managed calendar: the cached id file first,
// then a lookup by name, then creation. The resolved id is written back
// to the id file.
func (m *Manager) GetOrCreate(ctx context.Context, name, description, timezone, colorID string) (string, error) {
	if id := m.readCachedID(); id != "" {
		if _, err := m.GetCalendar(ctx, id); err == nil {
			return id, nil
		}
		// Stale id; the calendar was deleted out of band
		slog.Warn("Cached calendar id is no longer valid", "id", id)
	}

	id, err := m.FindCalendar(ctx, name)
	if err != nil {
		return "", err
	}
	if id != "" {
		m.writeCachedID(id)
		return id, nil
	}

	slog.Info("Calendar not found, creating", "name", name)
	id, err = m.CreateCalendar(ctx, name, description, timezone, colorID)
	if err != nil {
		return "", err
	}
	m.writeCachedID(id)
	return id, nil
}

// CreateCalendar creates a new calendar and applies the given color
func (m *Manager) CreateCalendar(ctx context.Context, name, description, timezone, colorID string) (string, error) {
	body := map[string]string{
		"summary":     name,
		"description": description,
		"timeZone":    timezone,
	}

	var created Calendar
	if err := m.client.do(ctx, http.MethodPost, "/calendars", body, &created); err != nil {
		return "", err
	}

	if colorID != "" {
		if err := m.SetColor(ctx, created.ID, colorID); err != nil {
			// Cosmetic; the calendar itself is usable
			slog.Warn("Failed to set calendar color", "id", created.ID, "error", err)
		}
	}

	slog.Info("Calendar created", "name", name, "id", created.ID)
	return created.ID, nil
}

// DeleteCalendar removes a calendar and drops the cached id if it matches
func (m *Manager) DeleteCalendar(ctx context.Context, calendarID string) error {
	path := "/calendars/" + url.PathEscape(calendarID)
	if err := m.client.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	if m.readCachedID() == calendarID {
		if err := os.Remove(m.idFile); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove calendar id file", "path", m.idFile, "error", err)
		}
	}
	return nil
}

// GetCalendar fetches one calendar's metadata
func (m *Manager) GetCalendar(ctx context.Context, calendarID string) (*Calendar, error) {
	var cal Calendar
	path := "/calendars/" + url.PathEscape(calendarID)
	if err := m.client.do(ctx, http.MethodGet, path, nil, &cal); err != nil {
		return nil, err
	}
	return &cal, nil
}

// SetColor updates the calendar's color on the user's calendar list
func (m *Manager) SetColor(ctx context.Context, calendarID, colorID string) error {
	body := map[string]string{"colorId": colorID}
	path := "/users/me/calendarList/" + url.PathEscape(calendarID)
	return m.client.do(ctx, http.MethodPatch, path, body, nil)
}

// ShareCalendar grants a user access to the calendar. Role is one of
// reader, writer or owner.
func (m *Manager) ShareCalendar(ctx context.Context, calendarID, email, role string) error {
	rule := map[string]any{
		"scope": map[string]string{
			"type":  "user",
			"value": email,
		},
		"role": role,
	}

	path := fmt.Sprintf("/calendars/%s/acl", url.PathEscape(calendarID))
	if err := m.client.do(ctx, http.MethodPost, path, rule, nil); err != nil {
		var remoteErr *sync.RemoteError
		if isRemoteError(err, &remoteErr) {
			return fmt.Errorf("failed to share calendar with %s: %w", email, remoteErr)
		}
		return err
	}

	slog.Info("Calendar shared", "email", email, "role", role)
	return nil
}

func (m *Manager) readCachedID() string {
	data, err := os.ReadFile(m.idFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (m *Manager) writeCachedID(id string) {
	if err := os.WriteFile(m.idFile, []byte(id+"\n"), 0644); err != nil {
		slog.Warn("Failed to cache calendar id", "path", m.idFile, "error", err)
	}
}
