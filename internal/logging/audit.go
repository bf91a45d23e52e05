package logging

import (
	"context"
	"log/slog"
)

const (
	ActionWebhookSignatureInvalid = "webhook.signature_invalid"
	ActionWebhookStaleEvent       = "webhook.stale_event"
	ActionEntitlementDenied       = "entitlement.denied"
	ActionDefectSuspicious        = "defect.suspicious_content"
	ActionAccountDeleted          = "account.deleted"
)

// Audit records an audit event through the default logger. It never fails;
// persistence is handled asynchronously by PGHandler.
func Audit(ctx context.Context, action string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, slog.Bool("audit", true), slog.String("action", action))
	all = append(all, attrs...)
	slog.Default().LogAttrs(ctx, slog.LevelInfo, "audit", all...)
}
