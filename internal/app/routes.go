package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"wardtrack/server/internal/model"
	"wardtrack/server/internal/tracker"
)

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.HandleFunc("/api/ingest", a.handleIngest)
	mux.HandleFunc("/api/ingest/batch", a.handleIngestBatch)
	mux.HandleFunc("/api/tags", a.handleTags)
	mux.HandleFunc("/api/tags/status", a.handleAllStatuses)
	mux.HandleFunc("/api/tags/search", a.handleSearch)
	mux.HandleFunc("/api/tag/status", a.handleTagStatus)
	mux.HandleFunc("/api/tag/history", a.handleTagHistory)
	mux.HandleFunc("/api/sightings/recent", a.handleRecentSightings)

	return mux
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	a.writeOK(w, http.StatusOK, map[string]string{"service": "wardtrack"})
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.writeJSON(w, http.StatusServiceUnavailable, envelope{
			Status: "error",
			Error:  &apiError{Code: "NOT_READY", Message: "database unavailable"},
		})
		return
	}
	a.writeOK(w, http.StatusOK, map[string]string{"service": "wardtrack"})
}

func (a *App) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var raw model.RawPacket
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		a.writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := a.tracker.Ingest(ctx, raw)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeOK(w, http.StatusOK, result)
}

func (a *App) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var packets []model.RawPacket
	if err := json.NewDecoder(r.Body).Decode(&packets); err != nil {
		a.writeBadRequest(w, "invalid JSON body, expected an array of packets")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result := a.tracker.IngestBatch(ctx, packets)
	a.writeOK(w, http.StatusOK, result)
}

func (a *App) handleTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tags := a.tracker.Registry().All()
	a.writeOK(w, http.StatusOK, map[string]any{
		"total": len(tags),
		"tags":  tags,
	})
}

func (a *App) handleAllStatuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	statuses := a.tracker.AllTagStatuses(ctx)
	a.writeOK(w, http.StatusOK, map[string]any{
		"total":    len(statuses),
		"statuses": statuses,
	})
}

func (a *App) handleTagStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("mac")
	if address == "" {
		a.writeBadRequest(w, "missing required parameter: mac")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := a.tracker.TagStatus(ctx, address)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeOK(w, http.StatusOK, status)
}

func (a *App) handleTagHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	address := query.Get("mac")
	if address == "" {
		a.writeBadRequest(w, "missing required parameter: mac")
		return
	}

	hours, ok := intParam(query.Get("hours"))
	if !ok {
		a.writeBadRequest(w, "invalid parameter: hours")
		return
	}
	limit, ok := intParam(query.Get("limit"))
	if !ok {
		a.writeBadRequest(w, "invalid parameter: limit")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	history, err := a.tracker.TagHistory(ctx, address, hours, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeOK(w, http.StatusOK, history)
}

func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	limit, ok := intParam(query.Get("limit"))
	if !ok {
		a.writeBadRequest(w, "invalid parameter: limit")
		return
	}

	search := tracker.SearchQuery{
		Query: query.Get("q"),
		Type:  query.Get("type"),
		Limit: limit,
	}

	if v := query.Get("present"); v != "" {
		present, err := strconv.ParseBool(v)
		if err != nil {
			a.writeBadRequest(w, "invalid parameter: present")
			return
		}
		search.IsPresent = &present
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result := a.tracker.SearchTags(ctx, search)
	a.writeOK(w, http.StatusOK, result)
}

func (a *App) handleRecentSightings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	limit, ok := intParam(query.Get("limit"))
	if !ok {
		a.writeBadRequest(w, "invalid parameter: limit")
		return
	}

	var since *time.Time
	if v := query.Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			a.writeBadRequest(w, "invalid parameter: since, expected RFC3339")
			return
		}
		since = &parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sightings, err := a.store.RecentSightings(ctx, limit, since)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if sightings == nil {
		sightings = []model.Sighting{}
	}
	a.writeOK(w, http.StatusOK, map[string]any{
		"total":     len(sightings),
		"sightings": sightings,
	})
}

// intParam parses an optional non-negative integer query parameter. An empty
// value yields zero, which downstream code replaces with its default.
func intParam(v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
