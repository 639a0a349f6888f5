package tracker

import (
	"context"

	"wardtrack/server/internal/mac"
	"wardtrack/server/internal/model"
)

// Signal bands use closed lower bounds: a reading exactly on a boundary gets
// the stronger label.
const (
	signalExcellentFloor = -50
	signalGoodFloor      = -65
	signalFairFloor      = -80
)

// TagStatus derives the current presence view for one registered tag. A MAC
// that does not normalize or is not in the roster yields TagNotFoundError.
func (s *Service) TagStatus(ctx context.Context, address string) (model.TagStatus, error) {
	normalized, err := mac.Normalize(address)
	if err != nil {
		return model.TagStatus{}, &TagNotFoundError{MAC: address}
	}

	tag, ok := s.registry.Lookup(normalized)
	if !ok {
		return model.TagStatus{}, &TagNotFoundError{MAC: normalized}
	}

	return s.statusFor(ctx, tag)
}

// AllTagStatuses computes the status of every registered tag. A store
// failure for one tag becomes an inline error marker and the listing
// continues.
func (s *Service) AllTagStatuses(ctx context.Context) []model.TagStatus {
	tags := s.registry.All()
	statuses := make([]model.TagStatus, 0, len(tags))

	for _, tag := range tags {
		status, err := s.statusFor(ctx, tag)
		if err != nil {
			s.logger.Warn("tag status failed", "tag", tag.Name, "error", err)
			statuses = append(statuses, model.TagStatus{
				Name:   tag.Name,
				MAC:    tag.MAC,
				Status: "error",
				Error:  err.Error(),
			})
			continue
		}
		statuses = append(statuses, status)
	}

	return statuses
}

func (s *Service) statusFor(ctx context.Context, tag model.Tag) (model.TagStatus, error) {
	latest, err := s.store.LatestSighting(ctx, tag.MAC)
	if err != nil {
		return model.TagStatus{}, &StorageError{MAC: tag.MAC, Op: "latest_sighting", Err: err}
	}

	status := model.TagStatus{
		Name:     tag.Name,
		MAC:      tag.MAC,
		Type:     tag.Type,
		Location: locationOrRoom(tag),
		Metadata: residualAttributes(tag),
	}

	if latest != nil {
		ts := latest.Timestamp
		rssi := latest.RSSI
		status.LastSeenUTC = &ts
		status.LastRSSI = &rssi
		status.IsPresent = s.now().UTC().Sub(ts) <= s.presenceTimeout
		status.SignalStrength = classifySignal(rssi)
	}

	return status, nil
}

func classifySignal(rssi int) string {
	switch {
	case rssi >= signalExcellentFloor:
		return "excellent"
	case rssi >= signalGoodFloor:
		return "good"
	case rssi >= signalFairFloor:
		return "fair"
	default:
		return "poor"
	}
}

// locationOrRoom resolves the displayed location from either attribute,
// preferring "location".
func locationOrRoom(tag model.Tag) *string {
	if loc := tag.Attribute("location"); loc != "" {
		return &loc
	}
	if room := tag.Attribute("room"); room != "" {
		return &room
	}
	return nil
}

// residualAttributes returns the type-specific attributes not already
// surfaced as named status fields.
func residualAttributes(tag model.Tag) map[string]string {
	if len(tag.Attributes) == 0 {
		return nil
	}
	out := make(map[string]string)
	for key, value := range tag.Attributes {
		switch key {
		case "location", "room":
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
