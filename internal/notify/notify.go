// Package notify delivers user notifications. The log dispatcher writes
// delivery records to the structured log; a deployment puts a push or
// email provider behind the same interface.
package notify

import (
	"context"

	"go.uber.org/zap"

	"shiftpool-service/pkg/logger"
)

// LogDispatcher logs notifications instead of delivering them.
type LogDispatcher struct{}

// NewLogDispatcher creates the logging dispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

// NotifyOne delivers a message to a single recipient.
func (d *LogDispatcher) NotifyOne(ctx context.Context, tenantID, recipientUID, message string) error {
	return d.NotifyMany(ctx, tenantID, []string{recipientUID}, message)
}

// NotifyMany delivers a message to every recipient.
func (d *LogDispatcher) NotifyMany(ctx context.Context, tenantID string, recipientUIDs []string, message string) error {
	logger.FromContext(ctx).Info("notification dispatched",
		zap.String("tenant_id", tenantID),
		zap.Strings("recipients", recipientUIDs),
		zap.String("message", message))
	return nil
}
