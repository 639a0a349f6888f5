package model

import "time"

// Tag is one entry of the static roster. Name and MAC are unique across the
// roster; MAC is stored normalized (AA:BB:CC:DD:EE:FF). Anything beyond the
// named fields (location, room, role, ...) lives in Attributes so new tag
// kinds need no schema change.
type Tag struct {
	Name       string            `json:"name"`
	MAC        string            `json:"mac"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns a type-specific attribute value, or "" when unset.
func (t Tag) Attribute(key string) string {
	return t.Attributes[key]
}

// RawPacket is a gateway report before validation. RSSI and Timestamp are
// untyped because gateways send them as numbers, strings, or not at all.
type RawPacket struct {
	MAC       string `json:"mac"`
	RSSI      any    `json:"rssi"`
	Timestamp any    `json:"timestamp,omitempty"`
	GatewayIP string `json:"gateway_ip,omitempty"`
}

// Sighting is one persisted observation. Rows are append-only; TagName is the
// registry name resolved at ingestion time and is kept even if the roster
// later changes.
type Sighting struct {
	ID        int64     `json:"id"`
	MAC       string    `json:"mac"`
	RSSI      int       `json:"rssi"`
	Timestamp time.Time `json:"ts_utc"`
	TagName   *string   `json:"tag_name"`
	GatewayIP *string   `json:"gateway_ip"`
}

// IngestResult reports the outcome of a single accepted packet.
type IngestResult struct {
	Status     string    `json:"status"`
	KnownTag   bool      `json:"known_tag"`
	MAC        string    `json:"mac"`
	TagName    *string   `json:"tag_name"`
	TagInfo    *Tag      `json:"tag_info"`
	SightingID int64     `json:"sighting_id"`
	Timestamp  time.Time `json:"timestamp"`
	RSSI       int       `json:"rssi"`
}

// BatchError records one failed packet of a batch by its position in the
// submitted sequence.
type BatchError struct {
	Index int    `json:"index"`
	MAC   string `json:"mac"`
	Error string `json:"error"`
}

// BatchResult tallies a batch submission. The batch call itself never fails;
// partial success is the expected outcome.
type BatchResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Errors     []BatchError   `json:"errors"`
	Results    []IngestResult `json:"results"`
}

// TagStatus is the derived, never-persisted presence view of a tag. In bulk
// listings a per-tag failure is reported inline through the Error field with
// Status set to "error".
type TagStatus struct {
	Name           string            `json:"name"`
	MAC            string            `json:"mac"`
	Type           string            `json:"type,omitempty"`
	IsPresent      bool              `json:"is_present"`
	LastSeenUTC    *time.Time        `json:"last_seen_utc"`
	LastRSSI       *int              `json:"last_rssi"`
	Location       *string           `json:"location"`
	SignalStrength string            `json:"signal_strength,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Status         string            `json:"status,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// TagIdentity is the static portion of a tag echoed in history responses.
type TagIdentity struct {
	Name string `json:"name"`
	MAC  string `json:"mac"`
	Type string `json:"type"`
}

// HistoryStats summarizes the fetched page of sightings. All fields are nil
// when the page is empty. First/last seen bound the page, not the full
// window.
type HistoryStats struct {
	AverageRSSI *float64   `json:"average_rssi"`
	MinRSSI     *int       `json:"min_rssi"`
	MaxRSSI     *int       `json:"max_rssi"`
	FirstSeen   *time.Time `json:"first_seen"`
	LastSeen    *time.Time `json:"last_seen"`
}

// TagHistory is the windowed sighting report for a single tag.
type TagHistory struct {
	Tag            TagIdentity  `json:"tag"`
	TimeRangeHours int          `json:"time_range_hours"`
	SightingCount  int          `json:"sighting_count"`
	Statistics     HistoryStats `json:"statistics"`
	Sightings      []Sighting   `json:"sightings"`
}

// SearchResult reports a roster search. TotalFound counts tags matching the
// query/type filters before the limit was applied.
type SearchResult struct {
	TotalFound int         `json:"total_found"`
	Returned   int         `json:"returned"`
	Tags       []TagStatus `json:"tags"`
}

// IngestionFailure captures a gateway payload that failed validation, kept
// for diagnosis.
type IngestionFailure struct {
	GatewayID string `json:"gateway_id"`
	Payload   string `json:"payload"`
	Error     string `json:"error"`
}
