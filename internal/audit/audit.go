// Package audit persists the append-only trail of scheduling actions.
package audit

import (
	"context"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
)

// StoreSink writes audit entries into the scheduling store, alongside the
// entities they describe.
type StoreSink struct {
	store store.SchedulingStore
}

// NewStoreSink creates a sink backed by the given store.
func NewStoreSink(st store.SchedulingStore) *StoreSink {
	return &StoreSink{store: st}
}

// Append records one audit entry.
func (s *StoreSink) Append(ctx context.Context, tenantID, actorUID, action, entityType, entityID string, details map[string]string) error {
	return s.store.AppendAuditEntry(ctx, &model.AuditLogEntry{
		TenantID:   tenantID,
		ActorUID:   actorUID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
}
