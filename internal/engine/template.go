package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"keepup/internal/domain"
	"keepup/internal/events"
	"keepup/internal/repo"
)

// PublishOptions are parameters for publishing a project as a marketplace
// template.
type PublishOptions struct {
	ProjectID   string
	Title       string
	Description string
	PriceCents  int64
	ActorID     string
}

// PublishTemplate snapshots a project into an immutable template. Items are
// copied by value in creation order; later edits to the live project never
// reach the snapshot. Owner only.
func (e Engine) PublishTemplate(ctx context.Context, opts PublishOptions) (domain.Template, error) {
	if opts.PriceCents < 0 {
		return domain.Template{}, errors.New("price must be non-negative")
	}
	if err := e.requireOwner(ctx, opts.ProjectID, opts.ActorID); err != nil {
		return domain.Template{}, err
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.Template{}, err
	}
	items, err := e.Repo.ListItems(ctx, repo.ItemFilters{ProjectID: opts.ProjectID})
	if err != nil {
		return domain.Template{}, err
	}

	now := e.nowRFC3339()
	t := domain.Template{
		ID:          uuid.NewString(),
		Title:       opts.Title,
		Description: opts.Description,
		PriceCents:  opts.PriceCents,
		AuthorID:    opts.ActorID,
		Icon:        p.Icon,
		CoverImage:  p.CoverImage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Title == "" {
		t.Title = p.Title
	}
	if t.Description == "" {
		t.Description = p.Description
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Template{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTemplate(ctx, tx, t); err != nil {
		return domain.Template{}, fmt.Errorf("insert template: %w", err)
	}
	snaps := make([]domain.TemplateItem, 0, len(items))
	for pos, it := range items {
		snaps = append(snaps, domain.TemplateItem{
			ID:          it.ID,
			TemplateID:  t.ID,
			Position:    pos,
			ParentID:    it.ParentID,
			Kind:        it.Kind,
			Title:       it.Title,
			Description: it.Description,
			Status:      it.Status,
			Priority:    it.Priority,
			AssigneeID:  it.AssigneeID,
			Content:     it.Content,
			Icon:        it.Icon,
			CoverImage:  it.CoverImage,
			DueDate:     it.DueDate,
		})
	}
	// Snapshot rows carry their own identifiers so the same project can be
	// published again; parent pointers are rewritten to match.
	for _, r := range RemapIdentifiers(snaps) {
		snap := r.Source
		snap.ID = r.NewID
		snap.ParentID = r.ParentID
		if err := e.Repo.InsertTemplateItem(ctx, tx, snap); err != nil {
			return domain.Template{}, fmt.Errorf("insert template item: %w", err)
		}
	}
	if err := e.Events.Append(ctx, tx, events.TypeTemplatePublish, opts.ProjectID, "template", t.ID, opts.ActorID,
		events.EventPayload{"price_cents": t.PriceCents, "items": len(items)}); err != nil {
		return domain.Template{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}

func (e Engine) GetTemplate(ctx context.Context, id string) (domain.Template, []domain.TemplateItem, error) {
	t, err := e.Repo.GetTemplate(ctx, id)
	if err != nil {
		return domain.Template{}, nil, err
	}
	items, err := e.Repo.ListTemplateItems(ctx, id)
	if err != nil {
		return domain.Template{}, nil, err
	}
	return t, items, nil
}

func (e Engine) ListTemplates(ctx context.Context, f repo.TemplateFilters) ([]domain.Template, error) {
	return e.Repo.ListTemplates(ctx, f)
}

// UpdateTemplateMeta edits title/description/price. Author only; the
// snapshot items stay frozen.
func (e Engine) UpdateTemplateMeta(ctx context.Context, templateID, actorID string, u repo.TemplateUpdate) (domain.Template, error) {
	t, err := e.Repo.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.Template{}, err
	}
	if t.AuthorID != actorID {
		return domain.Template{}, ErrForbidden
	}
	if u.PriceCents != nil && *u.PriceCents < 0 {
		return domain.Template{}, errors.New("price must be non-negative")
	}
	if err := e.Repo.UpdateTemplateMeta(ctx, templateID, e.nowRFC3339(), u); err != nil {
		return domain.Template{}, err
	}
	e.appendEvent(ctx, events.TypeTemplateUpdate, "", "template", templateID, actorID, nil)
	return e.Repo.GetTemplate(ctx, templateID)
}

// DeleteTemplate unlists a template. Author only, and only while nobody
// has bought it: purchases keep a foreign key to their template.
func (e Engine) DeleteTemplate(ctx context.Context, templateID, actorID string) error {
	t, err := e.Repo.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if t.AuthorID != actorID {
		return ErrForbidden
	}
	if n, err := e.Repo.CountPurchasers(ctx, templateID); err != nil {
		return err
	} else if n > 0 {
		return errors.New("cannot delete a purchased template")
	}
	if err := e.Repo.DeleteTemplate(ctx, templateID); err != nil {
		return err
	}
	e.appendEvent(ctx, events.TypeTemplateDelete, "", "template", templateID, actorID, nil)
	return nil
}

// instantiate clones a template snapshot into a new project owned by the
// buyer, inside the caller's transaction so the clone commits or rolls back
// with the purchase transition that triggered it.
//
// Clone rules: icon falls back to 🚀, the buyer becomes owner and assignee
// of every item, due dates reset to null, and task status/priority/kind
// default to todo/medium/task when the snapshot left them blank. Zero items
// is legal and yields an empty project.
func (e Engine) instantiate(ctx context.Context, tx *sql.Tx, t domain.Template, items []domain.TemplateItem, buyerID string) (domain.Project, error) {
	now := e.nowRFC3339()
	p := domain.Project{
		ID:          uuid.NewString(),
		Title:       t.Title,
		Description: t.Description,
		OwnerID:     buyerID,
		Icon:        t.Icon,
		CoverImage:  t.CoverImage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Icon == "" {
		p.Icon = "🚀"
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert cloned project: %w", err)
	}
	if err := e.Repo.UpsertMember(ctx, tx, p.ID, domain.Member{UserID: buyerID, Role: domain.RoleOwner}); err != nil {
		return domain.Project{}, fmt.Errorf("insert owner membership: %w", err)
	}

	remapped := RemapIdentifiers(items)
	clones := make([]domain.Item, 0, len(remapped))
	for _, r := range remapped {
		src := r.Source
		it := domain.Item{
			ID:          r.NewID,
			ProjectID:   p.ID,
			ParentID:    r.ParentID,
			Kind:        src.Kind,
			Title:       src.Title,
			Description: src.Description,
			Status:      src.Status,
			Priority:    src.Priority,
			AssigneeID:  &buyerID,
			Content:     src.Content,
			Icon:        src.Icon,
			CoverImage:  src.CoverImage,
			DueDate:     nil,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if it.Kind == "" {
			it.Kind = domain.KindTask
		}
		if it.Status == "" {
			it.Status = "todo"
		}
		if it.Priority == "" {
			it.Priority = "medium"
		}
		clones = append(clones, it)
	}
	if err := e.Repo.BulkInsertItems(ctx, tx, clones); err != nil {
		return domain.Project{}, fmt.Errorf("insert cloned items: %w", err)
	}
	if err := e.Repo.RecordPurchaser(ctx, tx, t.ID, buyerID); err != nil {
		return domain.Project{}, fmt.Errorf("record purchaser: %w", err)
	}
	return p, nil
}
