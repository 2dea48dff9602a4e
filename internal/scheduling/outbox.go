package scheduling

import (
	"context"

	"go.uber.org/zap"

	"shiftpool-service/pkg/logger"
	"shiftpool-service/prometheus"
)

// notice is one buffered notification. TenantID may differ from the
// operation's tenant: a freelancer is notified in their home tenant.
type notice struct {
	tenantID   string
	recipients []string
	message    string
}

// auditRecord is one buffered audit entry.
type auditRecord struct {
	tenantID   string
	actorUID   string
	action     string
	entityType string
	entityID   string
	details    map[string]string
}

// outbox buffers the side effects of one operation so they run only after
// the primary transaction committed. Every effect is best-effort: failures
// are logged and counted, never returned.
type outbox struct {
	audits  []auditRecord
	notices []notice
	effects []func(context.Context)
}

func newOutbox() *outbox {
	return &outbox{}
}

// Audit queues an audit entry.
func (o *outbox) Audit(tenantID, actorUID, action, entityType, entityID string, details map[string]string) {
	o.audits = append(o.audits, auditRecord{
		tenantID:   tenantID,
		actorUID:   actorUID,
		action:     action,
		entityType: entityType,
		entityID:   entityID,
		details:    details,
	})
}

// NotifyOne queues a notification to a single recipient.
func (o *outbox) NotifyOne(tenantID, recipientUID, message string) {
	o.NotifyMany(tenantID, []string{recipientUID}, message)
}

// NotifyMany queues a notification. Recipients are deduplicated and empty
// uids dropped at dispatch time.
func (o *outbox) NotifyMany(tenantID string, recipientUIDs []string, message string) {
	o.notices = append(o.notices, notice{
		tenantID:   tenantID,
		recipients: recipientUIDs,
		message:    message,
	})
}

// After queues an arbitrary post-commit effect, such as member provisioning
// or pool index maintenance. The effect handles its own errors.
func (o *outbox) After(fn func(context.Context)) {
	o.effects = append(o.effects, fn)
}

// Flush dispatches everything queued. Called once, after the operation's
// primary write succeeded.
func (o *outbox) Flush(ctx context.Context, c *core) {
	log := logger.FromContext(ctx)

	for _, fn := range o.effects {
		fn(ctx)
	}

	for _, a := range o.audits {
		err := c.audit.Append(ctx, a.tenantID, a.actorUID, a.action, a.entityType, a.entityID, a.details)
		if err != nil {
			prometheus.RecordAuditFailure()
			log.Error("audit append failed",
				zap.String("action", a.action),
				zap.String("entity_id", a.entityID),
				zap.Error(err))
		}
	}

	for _, n := range o.notices {
		recipients := dedupe(n.recipients)
		if len(recipients) == 0 {
			continue
		}
		err := c.notify.NotifyMany(ctx, n.tenantID, recipients, n.message)
		if err != nil {
			prometheus.RecordNotification("failed")
			log.Warn("notification dispatch failed",
				zap.String("tenant_id", n.tenantID),
				zap.Int("recipients", len(recipients)),
				zap.Error(err))
			continue
		}
		prometheus.RecordNotification("sent")
	}
}

func dedupe(uids []string) []string {
	seen := make(map[string]bool, len(uids))
	var result []string
	for _, uid := range uids {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		result = append(result, uid)
	}
	return result
}
