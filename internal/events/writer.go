// Package events is the append-only audit trail. Every mutation the engine
// performs leaves a typed event row; webhooks and the log CLI read it back.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types recorded by the engine.
const (
	TypeProjectCreate       = "project.create"
	TypeProjectUpdate       = "project.update"
	TypeProjectDelete       = "project.delete"
	TypeProjectMemberAdd    = "project.member_add"
	TypeProjectMemberRemove = "project.member_remove"
	TypeItemCreate          = "item.create"
	TypeItemUpdate          = "item.update"
	TypeItemDelete          = "item.delete"
	TypeTemplatePublish     = "template.publish"
	TypeTemplateUpdate      = "template.update"
	TypeTemplateDelete      = "template.delete"
	TypePurchaseInitiate    = "purchase.initiate"
	TypePurchaseComplete    = "purchase.complete"
	TypePurchaseFail        = "purchase.fail"
)

// Writer appends audit events inside the caller's transaction so a
// mutation and its audit row commit or roll back together.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, projectID, entityKind, entityID, actorID string, payload EventPayload) error {
	if evtType == "" {
		return fmt.Errorf("event type required")
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, nullable(projectID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
