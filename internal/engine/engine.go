// Package engine holds the application core: project and item operations,
// template publishing and instantiation, and the purchase ledger. Handlers
// and the CLI call into it; it owns all transaction boundaries.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keepup/internal/config"
	"keepup/internal/domain"
	"keepup/internal/events"
	"keepup/internal/mail"
	"keepup/internal/payment"
	"keepup/internal/repo"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Gateways map[string]payment.Gateway
	Mailer   mail.Sender
	Log      *zap.Logger
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config, log *zap.Logger) Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Gateways: buildGateways(cfg, log),
		Mailer:   mail.FromConfig(cfg, log),
		Log:      log,
		Now:      time.Now,
	}
}

func buildGateways(cfg *config.Config, log *zap.Logger) map[string]payment.Gateway {
	gws := map[string]payment.Gateway{}
	if cfg == nil {
		return gws
	}
	if cfg.Gateways.Khalti.SecretKey != "" {
		gws["khalti"] = payment.NewKhalti(cfg.Gateways.Khalti, log)
	}
	if cfg.Gateways.Esewa.SecretKey != "" {
		gws["esewa"] = payment.NewEsewa(cfg.Gateways.Esewa, log)
	}
	if cfg.Gateways.Sandbox.Enabled {
		gws["sandbox"] = payment.NewSandbox()
	}
	return gws
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

// gateway resolves a payment method name to its configured adapter. An
// empty method selects the configured default.
func (e Engine) gateway(method string) (payment.Gateway, error) {
	if method == "" && e.Config != nil {
		method = e.Config.Gateways.Default
	}
	gw, ok := e.Gateways[method]
	if !ok {
		return nil, fmt.Errorf("payment method %q not configured", method)
	}
	return gw, nil
}

// requireMember loads the actor's membership in a project, ErrForbidden if
// absent. Most project-scoped operations gate on this.
func (e Engine) requireMember(ctx context.Context, projectID, userID string) (domain.Member, error) {
	m, err := e.Repo.GetMember(ctx, projectID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return m, ErrForbidden
	}
	return m, err
}

// requireOwner is requireMember restricted to the owner role.
func (e Engine) requireOwner(ctx context.Context, projectID, userID string) error {
	m, err := e.requireMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if m.Role != domain.RoleOwner {
		return ErrForbidden
	}
	return nil
}

type ProjectCreateOptions struct {
	Title       string
	Description string
	Icon        string
	CoverImage  string
	OwnerID     string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Title == "" {
		return domain.Project{}, errors.New("title is required")
	}
	if opts.OwnerID == "" {
		return domain.Project{}, errors.New("owner is required")
	}
	now := e.nowRFC3339()
	p := domain.Project{
		ID:          uuid.NewString(),
		Title:       opts.Title,
		Description: opts.Description,
		OwnerID:     opts.OwnerID,
		Icon:        opts.Icon,
		CoverImage:  opts.CoverImage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := domain.Member{UserID: opts.OwnerID, Role: domain.RoleOwner}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Repo.UpsertMember(ctx, tx, p.ID, owner); err != nil {
		return domain.Project{}, fmt.Errorf("insert owner membership: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectCreate, p.ID, "project", p.ID, opts.OwnerID, events.EventPayload{"title": p.Title}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	p.Members = []domain.Member{owner}
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, projectID, userID string) (domain.Project, error) {
	if _, err := e.requireMember(ctx, projectID, userID); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, projectID)
}

func (e Engine) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	return e.Repo.ListProjectsForUser(ctx, userID)
}

func (e Engine) UpdateProject(ctx context.Context, projectID, userID string, u repo.ProjectUpdate) (domain.Project, error) {
	if _, err := e.requireMember(ctx, projectID, userID); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.UpdateProject(ctx, projectID, e.nowRFC3339(), u); err != nil {
		return domain.Project{}, err
	}
	e.appendEvent(ctx, events.TypeProjectUpdate, projectID, "project", projectID, userID, nil)
	return e.Repo.GetProject(ctx, projectID)
}

// DeleteProject removes a project and, through foreign keys, its items and
// memberships. Owner only.
func (e Engine) DeleteProject(ctx context.Context, projectID, userID string) error {
	if err := e.requireOwner(ctx, projectID, userID); err != nil {
		return err
	}
	if err := e.Repo.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	e.appendEvent(ctx, events.TypeProjectDelete, projectID, "project", projectID, userID, nil)
	return nil
}

func (e Engine) AddMember(ctx context.Context, projectID, actorID, userID, role string) error {
	if err := e.requireOwner(ctx, projectID, actorID); err != nil {
		return err
	}
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleOwner && role != domain.RoleMember {
		return fmt.Errorf("invalid role %q", role)
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := e.Repo.UpsertMember(ctx, nil, projectID, domain.Member{UserID: userID, Role: role}); err != nil {
		return err
	}
	e.appendEvent(ctx, events.TypeProjectMemberAdd, projectID, "member", userID, actorID, events.EventPayload{"role": role})
	return nil
}

func (e Engine) RemoveMember(ctx context.Context, projectID, actorID, userID string) error {
	if err := e.requireOwner(ctx, projectID, actorID); err != nil {
		return err
	}
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.OwnerID == userID {
		return errors.New("cannot remove the project owner")
	}
	if err := e.Repo.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	e.appendEvent(ctx, events.TypeProjectMemberRemove, projectID, "member", userID, actorID, nil)
	return nil
}

// PinProject toggles the actor's own pinned flag on their membership.
func (e Engine) PinProject(ctx context.Context, projectID, userID string, pinned bool) error {
	if _, err := e.requireMember(ctx, projectID, userID); err != nil {
		return err
	}
	return e.Repo.SetMemberPinned(ctx, projectID, userID, pinned)
}

// appendEvent writes an audit row in its own short transaction, for
// operations that do not already run inside one. Audit failures are logged,
// never surfaced.
func (e Engine) appendEvent(ctx context.Context, evtType, projectID, entityKind, entityID, actorID string, payload events.EventPayload) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		e.log().Warn("audit event dropped", zap.String("type", evtType), zap.Error(err))
		return
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, evtType, projectID, entityKind, entityID, actorID, payload); err != nil {
		e.log().Warn("audit event dropped", zap.String("type", evtType), zap.Error(err))
		return
	}
	if err := tx.Commit(); err != nil {
		e.log().Warn("audit event dropped", zap.String("type", evtType), zap.Error(err))
	}
}
