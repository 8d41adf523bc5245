// internal/welfare/audit.go
package welfare

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/models"
)

// AuditRecorder appends admin-action records to the audit log and mirrors them
// into Elasticsearch for the activity feed. Auditing is strictly best-effort:
// the welfare ledger is the source of truth, so a failed audit write is logged
// and swallowed, never surfaced to the workflow.
type AuditRecorder struct {
	db     *sql.DB
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewAuditRecorder(db *sql.DB, es *elasticsearch.Client, index string, log logger.Logger) *AuditRecorder {
	return &AuditRecorder{
		db:     db,
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit-recorder"}),
	}
}

// Record writes one audit entry. Errors are absorbed.
func (r *AuditRecorder) Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]interface{}) {
	entry := models.AuditEntry{
		ID:           uuid.New().String(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		CreatedAt:    time.Now().UTC(),
	}

	r.persist(ctx, entry)
	r.mirror(ctx, entry)
}

func (r *AuditRecorder) persist(ctx context.Context, entry models.AuditEntry) {
	var detailsJSON []byte
	if entry.Details != nil {
		detailsJSON, _ = json.Marshal(entry.Details)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID,
		detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		r.logger.Warn("audit log insert failed", map[string]interface{}{
			"action":     entry.Action,
			"resourceId": entry.ResourceID,
			"error":      err,
		})
	}
}

func (r *AuditRecorder) mirror(ctx context.Context, entry models.AuditEntry) {
	if r.es == nil {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}

	res, err := r.es.Index(
		r.index,
		bytes.NewReader(payload),
		r.es.Index.WithContext(ctx),
		r.es.Index.WithDocumentID(entry.ID),
	)
	if err != nil {
		r.logger.Warn("audit index request failed", map[string]interface{}{
			"action": entry.Action,
			"error":  err,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		r.logger.Warn("audit index rejected", map[string]interface{}{
			"action": entry.Action,
			"status": res.Status(),
		})
	}
}
