// Package worker turns the ledger's event stream into a durable audit
// trail. The engine stays free of any I/O beyond publishing.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"ventas/internal/events"
	"ventas/internal/store/sqlite"
)

// AuditWorker appends every consumed ledger event to the sqlite audit
// table.
type AuditWorker struct {
	repo *sqlite.Repository
}

func NewAuditWorker(repo *sqlite.Repository) *AuditWorker {
	return &AuditWorker{repo: repo}
}

// HandleEvent records one event. Failures bubble up so the consumer
// nacks and requeues the delivery.
func (w *AuditWorker) HandleEvent(ctx context.Context, e events.Event) error {
	payload, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	if err := w.repo.AppendAuditEvent(ctx, e.Type, e.SaleID, e.At, payload); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	slog.InfoContext(ctx, "Audit event recorded",
		"type", e.Type,
		"sale_id", e.SaleID,
		"at", e.At)
	return nil
}
