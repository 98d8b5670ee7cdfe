package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/warden-bot/warden/internal/chread"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// handleListEvents implements GET /api/warden/events.
// Query params: kind, action, user_id, group_id, page, page_size.
func (d *Dependencies) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Event storage not configured"})
		return
	}

	q := r.URL.Query()
	params := chread.ListEventsParams{
		Page:     1,
		PageSize: defaultPageSize,
	}
	if v := q.Get("kind"); v != "" {
		params.Kind = &v
	}
	if v := q.Get("action"); v != "" {
		params.Action = &v
	}
	if v := q.Get("user_id"); v != "" {
		params.UserID = &v
	}
	if v := q.Get("group_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			params.GroupID = &id
		}
	}
	if v := q.Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			params.Page = p
		}
	}
	if v := q.Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= maxPageSize {
			params.PageSize = ps
		}
	}

	rows, total, err := d.Reader.ListEvents(r.Context(), params)
	if err != nil {
		d.Logger.Error("list events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to query events"})
		return
	}

	resp := EventListResp{
		Events:   make([]EventResp, 0, len(rows)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for _, row := range rows {
		resp.Events = append(resp.Events, EventResp{
			EventID:   row.EventID,
			Timestamp: row.Timestamp.UTC().Format(time.RFC3339),
			Kind:      row.Kind,
			Action:    row.Action,
			GroupID:   row.GroupID,
			UserID:    row.UserID,
			Detail:    row.Detail,
			LatencyMs: row.LatencyMs,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetAnalytics implements GET /api/warden/analytics.
// Query params: days (default 7, max 90).
func (d *Dependencies) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Event storage not configured"})
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 90 {
			days = n
		}
	}

	result, err := d.Reader.GetAnalytics(r.Context(), days)
	if err != nil {
		d.Logger.Error("analytics query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to query analytics"})
		return
	}

	resp := AnalyticsResp{
		Total:    result.Total,
		ByAction: make([]ActionCountResp, 0, len(result.ByAction)),
		ByDay:    make([]DayCountResp, 0, len(result.ByDay)),
	}
	for _, a := range result.ByAction {
		resp.ByAction = append(resp.ByAction, ActionCountResp{Action: a.Action, Count: a.Count})
	}
	for _, d := range result.ByDay {
		resp.ByDay = append(resp.ByDay, DayCountResp{Day: d.Day, Count: d.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}
