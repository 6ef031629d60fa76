package server

import (
	"keepup/internal/domain"
)

// Request payloads

type RegisterRequest struct {
	Email    string `json:"email" format:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type VerifyOTPRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	CoverImage  string `json:"cover_image,omitempty"`
}

type UpdateProjectRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	CoverImage  *string `json:"cover_image,omitempty"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty" enum:"owner,member"`
}

type PinProjectRequest struct {
	Pinned bool `json:"pinned"`
}

type CreateItemRequest struct {
	ParentID    *string `json:"parent_id,omitempty"`
	Kind        string  `json:"kind,omitempty" enum:"task,list,page"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty" enum:"todo,in-progress,done"`
	Priority    string  `json:"priority,omitempty" enum:"low,medium,high"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Content     *string `json:"content,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	CoverImage  string  `json:"cover_image,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
}

type UpdateItemRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"todo,in-progress,done"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Content     *string `json:"content,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	CoverImage  *string `json:"cover_image,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	ParentID    *string `json:"parent_id,omitempty"`
	// Clear flags distinguish "leave alone" from "set to null".
	ClearAssignee bool `json:"clear_assignee,omitempty"`
	ClearContent  bool `json:"clear_content,omitempty"`
	ClearDueDate  bool `json:"clear_due_date,omitempty"`
	ClearParent   bool `json:"clear_parent,omitempty"`
}

type PublishTemplateRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents" minimum:"0"`
}

type UpdateTemplateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty" minimum:"0"`
}

type InitiatePurchaseRequest struct {
	TemplateID string `json:"template_id"`
	Method     string `json:"method,omitempty" enum:"khalti,esewa,sandbox"`
}

type AddCartLineRequest struct {
	TemplateID string `json:"template_id"`
}

type CheckoutCartRequest struct {
	Method string `json:"method,omitempty" enum:"khalti,esewa,sandbox"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// Response payloads

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type LoginResponse struct {
	ChallengeID string `json:"challenge_id"`
	ExpiresAt   string `json:"expires_at" format:"date-time"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type MemberResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Pinned bool   `json:"pinned"`
}

type ProjectResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	OwnerID     string           `json:"owner_id"`
	Icon        string           `json:"icon,omitempty"`
	CoverImage  string           `json:"cover_image,omitempty"`
	Members     []MemberResponse `json:"members,omitempty"`
	CreatedAt   string           `json:"created_at" format:"date-time"`
	UpdatedAt   string           `json:"updated_at" format:"date-time"`
}

type ItemResponse struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	ParentID    *string `json:"parent_id,omitempty"`
	Kind        string  `json:"kind"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Content     *string `json:"content,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	CoverImage  string  `json:"cover_image,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type TemplateResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	AuthorID    string `json:"author_id"`
	Icon        string `json:"icon,omitempty"`
	CoverImage  string `json:"cover_image,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type TemplateItemResponse struct {
	ID       string  `json:"id"`
	Position int     `json:"position"`
	ParentID *string `json:"parent_id,omitempty"`
	Kind     string  `json:"kind"`
	Title    string  `json:"title"`
}

type TemplateDetailResponse struct {
	TemplateResponse
	Items []TemplateItemResponse `json:"items"`
}

type PurchaseResponse struct {
	ID                   string  `json:"id"`
	TemplateID           string  `json:"template_id"`
	AmountCents          int64   `json:"amount_cents"`
	TransactionRef       string  `json:"transaction_ref"`
	ProviderPaymentIndex *string `json:"provider_payment_index,omitempty"`
	Status               string  `json:"status"`
	Method               string  `json:"method"`
	ProjectID            *string `json:"project_id,omitempty"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
	UpdatedAt            string  `json:"updated_at" format:"date-time"`
}

type InitiatePurchaseResponse struct {
	Purchase    PurchaseResponse `json:"purchase"`
	RedirectURL string           `json:"redirect_url,omitempty"`
	ProjectID   string           `json:"project_id,omitempty"`
}

type VerifyPurchaseResponse struct {
	Purchase  PurchaseResponse `json:"purchase"`
	ProjectID string           `json:"project_id"`
}

type CartLineResponse struct {
	TemplateID string `json:"template_id"`
	PriceCents int64  `json:"price_cents"`
	AddedAt    string `json:"added_at" format:"date-time"`
}

type CartResponse struct {
	Lines      []CartLineResponse `json:"lines"`
	TotalCents int64              `json:"total_cents"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	Key       string `json:"key,omitempty"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// Mappers

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func projectResponse(p domain.Project) ProjectResponse {
	res := ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		Icon:        p.Icon,
		CoverImage:  p.CoverImage,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, m := range p.Members {
		res.Members = append(res.Members, MemberResponse{UserID: m.UserID, Role: m.Role, Pinned: m.Pinned})
	}
	return res
}

func mapProjects(items []domain.Project) []ProjectResponse {
	res := make([]ProjectResponse, 0, len(items))
	for _, p := range items {
		res = append(res, projectResponse(p))
	}
	return res
}

func itemResponse(it domain.Item) ItemResponse {
	return ItemResponse{
		ID:          it.ID,
		ProjectID:   it.ProjectID,
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
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func mapItems(items []domain.Item) []ItemResponse {
	res := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		res = append(res, itemResponse(it))
	}
	return res
}

func templateResponse(t domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		PriceCents:  t.PriceCents,
		AuthorID:    t.AuthorID,
		Icon:        t.Icon,
		CoverImage:  t.CoverImage,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func mapTemplates(items []domain.Template) []TemplateResponse {
	res := make([]TemplateResponse, 0, len(items))
	for _, t := range items {
		res = append(res, templateResponse(t))
	}
	return res
}

func templateDetailResponse(t domain.Template, items []domain.TemplateItem) TemplateDetailResponse {
	res := TemplateDetailResponse{TemplateResponse: templateResponse(t)}
	res.Items = make([]TemplateItemResponse, 0, len(items))
	for _, it := range items {
		res.Items = append(res.Items, TemplateItemResponse{
			ID:       it.ID,
			Position: it.Position,
			ParentID: it.ParentID,
			Kind:     it.Kind,
			Title:    it.Title,
		})
	}
	return res
}

func purchaseResponse(p domain.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:                   p.ID,
		TemplateID:           p.TemplateID,
		AmountCents:          p.AmountCents,
		TransactionRef:       p.TransactionRef,
		ProviderPaymentIndex: p.ProviderPaymentIndex,
		Status:               p.Status,
		Method:               p.Method,
		ProjectID:            p.ProjectID,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func mapPurchases(items []domain.Purchase) []PurchaseResponse {
	res := make([]PurchaseResponse, 0, len(items))
	for _, p := range items {
		res = append(res, purchaseResponse(p))
	}
	return res
}

func cartResponse(lines []domain.CartLine) CartResponse {
	res := CartResponse{Lines: make([]CartLineResponse, 0, len(lines))}
	for _, l := range lines {
		res.Lines = append(res.Lines, CartLineResponse{TemplateID: l.TemplateID, PriceCents: l.PriceCents, AddedAt: l.AddedAt})
		res.TotalCents += l.PriceCents
	}
	return res
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		ProjectID:  e.ProjectID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    e.Payload,
	}
}
