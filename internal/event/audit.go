package event

import (
	"context"

	"go.uber.org/zap"
)

// AuditLogger returns a handler that mirrors every event into the process
// log. Suspicious activity is raised to warn so alerting can key on it.
func AuditLogger(log *zap.Logger) Handler {
	log = log.With(zap.String("component", "audit"))
	return func(_ context.Context, e Event) error {
		fields := []zap.Field{
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.String("origin", e.Origin),
			zap.String("actor_id", e.ActorID),
			zap.String("entity", e.EntityType+"/"+e.EntityID),
		}
		for k, v := range e.Metadata {
			fields = append(fields, zap.String("md_"+k, v))
		}
		if e.Type == TypeSuspiciousActivity {
			log.Warn("suspicious activity", fields...)
			return nil
		}
		log.Info("domain event", fields...)
		return nil
	}
}
