package api

import (
	"net/http"
	"regexp"
)

// identifierRe validates identifiers submitted through the API. The scanner
// only ever inserts 8+ digit runs, but operators may manage shorter test
// identifiers, so any non-empty digit string is accepted.
var identifierRe = regexp.MustCompile(`^[0-9]+$`)

// handleListBlacklist implements GET /api/warden/blacklist.
func (d *Dependencies) handleListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries := d.Store.List(r.Context())

	resp := BlacklistResp{
		Entries: make([]EntryResp, 0, len(entries)),
		Total:   len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryResp{
			Identifier: e.Identifier,
			InsertedAt: e.InsertedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAddBlacklist implements POST /api/warden/blacklist.
func (d *Dependencies) handleAddBlacklist(w http.ResponseWriter, r *http.Request) {
	var req AddEntryReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if !identifierRe.MatchString(req.Identifier) {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "identifier must be a decimal string"})
		return
	}

	ok := d.Store.Add(r.Context(), req.Identifier)
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, MutationResp{Identifier: req.Identifier, Success: ok})
}

// handleRemoveBlacklist implements DELETE /api/warden/blacklist/{identifier}.
func (d *Dependencies) handleRemoveBlacklist(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")
	if !identifierRe.MatchString(identifier) {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "identifier must be a decimal string"})
		return
	}

	ok := d.Store.Remove(r.Context(), identifier)
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, MutationResp{Identifier: identifier, Success: ok})
}
