package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"keepup/internal/domain"
	"keepup/internal/events"
	"keepup/internal/repo"
)

// ItemCreateOptions are parameters for creating an item inside a project.
type ItemCreateOptions struct {
	ProjectID   string
	ParentID    string
	Kind        string
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  string
	Content     string
	Icon        string
	CoverImage  string
	DueDate     string
	ActorID     string
}

func (e Engine) CreateItem(ctx context.Context, opts ItemCreateOptions) (domain.Item, error) {
	if opts.Title == "" {
		return domain.Item{}, errors.New("title is required")
	}
	if opts.Kind == "" {
		opts.Kind = domain.KindTask
	}
	switch opts.Kind {
	case domain.KindTask, domain.KindList, domain.KindPage:
	default:
		return domain.Item{}, fmt.Errorf("invalid kind %q", opts.Kind)
	}
	if _, err := e.requireMember(ctx, opts.ProjectID, opts.ActorID); err != nil {
		return domain.Item{}, err
	}
	if opts.ParentID != "" {
		parent, err := e.Repo.GetItem(ctx, opts.ParentID)
		if err != nil {
			return domain.Item{}, fmt.Errorf("parent: %w", err)
		}
		if parent.ProjectID != opts.ProjectID {
			return domain.Item{}, fmt.Errorf("parent %s not in project %s", opts.ParentID, opts.ProjectID)
		}
		if parent.Kind != domain.KindList && parent.Kind != domain.KindPage {
			return domain.Item{}, fmt.Errorf("parent %s is a %s, not a container", opts.ParentID, parent.Kind)
		}
	}
	if opts.Kind == domain.KindTask {
		if opts.Status == "" {
			opts.Status = "todo"
		}
		if opts.Priority == "" {
			opts.Priority = "medium"
		}
	}
	// Reject malformed content up front so a list never stores a payload its
	// readers cannot decode.
	if _, err := domain.ParseContent(opts.Kind, optionalString(opts.Content)); err != nil {
		return domain.Item{}, err
	}
	if opts.AssigneeID != "" {
		if _, err := e.Repo.GetUser(ctx, opts.AssigneeID); err != nil {
			return domain.Item{}, fmt.Errorf("assignee: %w", err)
		}
	}

	now := e.nowRFC3339()
	it := domain.Item{
		ID:          uuid.NewString(),
		ProjectID:   opts.ProjectID,
		ParentID:    optionalString(opts.ParentID),
		Kind:        opts.Kind,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      opts.Status,
		Priority:    opts.Priority,
		AssigneeID:  optionalString(opts.AssigneeID),
		Content:     optionalString(opts.Content),
		Icon:        opts.Icon,
		CoverImage:  opts.CoverImage,
		DueDate:     optionalString(opts.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertItem(ctx, nil, it); err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	e.appendEvent(ctx, events.TypeItemCreate, opts.ProjectID, "item", it.ID, opts.ActorID, events.EventPayload{"kind": it.Kind, "title": it.Title})
	return it, nil
}

func (e Engine) GetItem(ctx context.Context, itemID, userID string) (domain.Item, error) {
	it, err := e.Repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if _, err := e.requireMember(ctx, it.ProjectID, userID); err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

func (e Engine) ListItems(ctx context.Context, userID string, f repo.ItemFilters) ([]domain.Item, error) {
	if _, err := e.requireMember(ctx, f.ProjectID, userID); err != nil {
		return nil, err
	}
	return e.Repo.ListItems(ctx, f)
}

func (e Engine) UpdateItem(ctx context.Context, itemID, userID string, u repo.ItemUpdate) (domain.Item, error) {
	it, err := e.Repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if _, err := e.requireMember(ctx, it.ProjectID, userID); err != nil {
		return domain.Item{}, err
	}
	if u.ParentID != nil {
		parent, err := e.Repo.GetItem(ctx, *u.ParentID)
		if err != nil {
			return domain.Item{}, fmt.Errorf("parent: %w", err)
		}
		if parent.ProjectID != it.ProjectID {
			return domain.Item{}, fmt.Errorf("parent %s not in project %s", *u.ParentID, it.ProjectID)
		}
		if parent.Kind != domain.KindList && parent.Kind != domain.KindPage {
			return domain.Item{}, fmt.Errorf("parent %s is a %s, not a container", *u.ParentID, parent.Kind)
		}
		if parent.ID == it.ID {
			return domain.Item{}, errors.New("item cannot be its own parent")
		}
	}
	if u.Content != nil {
		if _, err := domain.ParseContent(it.Kind, u.Content); err != nil {
			return domain.Item{}, err
		}
	}
	if u.AssigneeID != nil {
		if _, err := e.Repo.GetUser(ctx, *u.AssigneeID); err != nil {
			return domain.Item{}, fmt.Errorf("assignee: %w", err)
		}
	}
	if err := e.Repo.UpdateItem(ctx, nil, itemID, e.nowRFC3339(), u); err != nil {
		return domain.Item{}, err
	}
	e.appendEvent(ctx, events.TypeItemUpdate, it.ProjectID, "item", itemID, userID, nil)
	return e.Repo.GetItem(ctx, itemID)
}

// DeleteItem removes an item. Deleting a list or page also removes its
// direct children; grandchildren keep their parent pointer and become
// unreachable rather than being chased.
func (e Engine) DeleteItem(ctx context.Context, itemID, userID string) error {
	it, err := e.Repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if _, err := e.requireMember(ctx, it.ProjectID, userID); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var removed int64
	if it.Kind == domain.KindList || it.Kind == domain.KindPage {
		removed, err = e.Repo.DeleteChildren(ctx, tx, itemID)
		if err != nil {
			return err
		}
	}
	if err := e.Repo.DeleteItem(ctx, tx, itemID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeItemDelete, it.ProjectID, "item", itemID, userID, events.EventPayload{"children_removed": removed}); err != nil {
		return err
	}
	return tx.Commit()
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
