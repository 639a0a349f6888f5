package tracker

import (
	"context"

	"wardtrack/server/internal/model"
	"wardtrack/server/internal/packet"
)

// Ingest validates a single gateway packet and persists it. Unknown MACs are
// ingested too, flagged rather than rejected; validation failures abort
// before anything is written. The stored tag name is a point-in-time
// snapshot of the roster at ingestion.
func (s *Service) Ingest(ctx context.Context, raw model.RawPacket) (model.IngestResult, error) {
	validated, err := packet.Validate(raw, s.now())
	if err != nil {
		return model.IngestResult{}, err
	}

	var tagName *string
	var tagInfo *model.Tag
	if tag, ok := s.registry.Lookup(validated.MAC); ok {
		name := tag.Name
		tagName = &name
		tagInfo = &tag
	}

	sighting := model.Sighting{
		MAC:       validated.MAC,
		RSSI:      validated.RSSI,
		Timestamp: validated.Timestamp,
		TagName:   tagName,
	}
	if validated.GatewayIP != "" {
		ip := validated.GatewayIP
		sighting.GatewayIP = &ip
	}

	id, err := s.store.InsertSighting(ctx, sighting)
	if err != nil {
		return model.IngestResult{}, &StorageError{MAC: validated.MAC, Op: "insert_sighting", Err: err}
	}

	s.logger.Info("ingested sighting",
		"mac", validated.MAC,
		"rssi", validated.RSSI,
		"tag", deref(tagName),
		"gateway_ip", validated.GatewayIP,
	)

	return model.IngestResult{
		Status:     "ok",
		KnownTag:   tagInfo != nil,
		MAC:        validated.MAC,
		TagName:    tagName,
		TagInfo:    tagInfo,
		SightingID: id,
		Timestamp:  validated.Timestamp,
		RSSI:       validated.RSSI,
	}, nil
}

// IngestBatch processes packets independently in input order. A failed
// packet is tallied with its index and does not stop the rest; the call
// itself never fails.
func (s *Service) IngestBatch(ctx context.Context, packets []model.RawPacket) model.BatchResult {
	result := model.BatchResult{
		Total:   len(packets),
		Errors:  []model.BatchError{},
		Results: []model.IngestResult{},
	}

	for i, raw := range packets {
		ingested, err := s.Ingest(ctx, raw)
		if err != nil {
			result.Failed++
			macLabel := raw.MAC
			if macLabel == "" {
				macLabel = "unknown"
			}
			result.Errors = append(result.Errors, model.BatchError{
				Index: i,
				MAC:   macLabel,
				Error: err.Error(),
			})
			s.logger.Warn("batch ingest item failed", "index", i, "error", err)
			continue
		}
		result.Successful++
		result.Results = append(result.Results, ingested)
	}

	s.logger.Info("batch ingest completed",
		"total", result.Total,
		"successful", result.Successful,
		"failed", result.Failed,
	)

	return result
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
