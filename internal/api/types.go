package api

// --- Blacklist ---

// EntryResp is one blacklist entry.
type EntryResp struct {
	Identifier string `json:"identifier"`
	InsertedAt int64  `json:"inserted_at"`
}

// BlacklistResp is the body for GET /api/warden/blacklist.
type BlacklistResp struct {
	Entries []EntryResp `json:"entries"`
	Total   int         `json:"total"`
}

// AddEntryReq is the JSON body for POST /api/warden/blacklist.
type AddEntryReq struct {
	Identifier string `json:"identifier"`
}

// MutationResp reports the outcome of an add or remove.
type MutationResp struct {
	Identifier string `json:"identifier"`
	Success    bool   `json:"success"`
}

// --- Moderation events ---

// EventResp is one moderation event from the audit trail.
type EventResp struct {
	EventID   string  `json:"event_id"`
	Timestamp string  `json:"timestamp"`
	Kind      string  `json:"kind"`
	Action    string  `json:"action"`
	GroupID   int64   `json:"group_id"`
	UserID    string  `json:"user_id"`
	Detail    string  `json:"detail"`
	LatencyMs float32 `json:"latency_ms"`
}

// EventListResp is the body for GET /api/warden/events.
type EventListResp struct {
	Events   []EventResp `json:"events"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// --- Analytics ---

// ActionCountResp holds an action and its count.
type ActionCountResp struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// DayCountResp holds a day and its count.
type DayCountResp struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// AnalyticsResp is the body for GET /api/warden/analytics.
type AnalyticsResp struct {
	Total    int               `json:"total"`
	ByAction []ActionCountResp `json:"by_action"`
	ByDay    []DayCountResp    `json:"by_day"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
