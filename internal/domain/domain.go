package domain

// Item kinds. Lists and pages are containers; tasks are leaves.
const (
	KindTask = "task"
	KindList = "list"
	KindPage = "page"
)

// Purchase statuses. COMPLETED, FAILED and REFUNDED are terminal.
const (
	PurchasePending   = "PENDING"
	PurchaseCompleted = "COMPLETED"
	PurchaseFailed    = "FAILED"
	PurchaseRefunded  = "REFUNDED"
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

// OTPChallenge is a pending email MFA code. A challenge is single use:
// ConsumedAt is set when the code is accepted.
type OTPChallenge struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	CodeHash   string  `json:"-"`
	ExpiresAt  string  `json:"expires_at" format:"date-time"`
	ConsumedAt *string `json:"consumed_at,omitempty" format:"date-time"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
}

type Member struct {
	UserID string `json:"user_id"`
	Role   string `json:"role" enum:"owner,member"`
	Pinned bool   `json:"pinned"`
}

type Project struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	OwnerID     string   `json:"owner_id"`
	Icon        string   `json:"icon,omitempty"`
	CoverImage  string   `json:"cover_image,omitempty"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
	Members     []Member `json:"members,omitempty"`
}

type Item struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	ParentID    *string `json:"parent_id,omitempty"`
	Kind        string  `json:"kind" enum:"task,list,page"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty" enum:"todo,in-progress,done"`
	Priority    string  `json:"priority,omitempty" enum:"low,medium,high"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Content     *string `json:"content,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	CoverImage  string  `json:"cover_image,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

// Template is an immutable point-in-time export of a project offered for
// sale. Items are copied by value at publish time; only title, description
// and price may be edited afterwards, and only by the author.
type Template struct {
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

// TemplateItem mirrors Item inside a snapshot. Position preserves the
// authored order; ParentID references another snapshot item's ID.
type TemplateItem struct {
	ID          string  `json:"id"`
	TemplateID  string  `json:"template_id"`
	Position    int     `json:"position"`
	ParentID    *string `json:"parent_id,omitempty"`
	Kind        string  `json:"kind" enum:"task,list,page"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Content     *string `json:"content,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	CoverImage  string  `json:"cover_image,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
}

// Purchase tracks one buy attempt for a (buyer, template) pair through the
// payment lifecycle. TransactionRef is generated locally;
// ProviderPaymentIndex and ProviderTransactionID come from the gateway.
// ProjectID is filled once verification clones the template.
type Purchase struct {
	ID                    string  `json:"id"`
	BuyerID               string  `json:"buyer_id"`
	TemplateID            string  `json:"template_id"`
	AmountCents           int64   `json:"amount_cents"`
	TransactionRef        string  `json:"transaction_ref"`
	ProviderPaymentIndex  *string `json:"provider_payment_index,omitempty"`
	ProviderTransactionID *string `json:"provider_transaction_id,omitempty"`
	Status                string  `json:"status" enum:"PENDING,COMPLETED,FAILED,REFUNDED"`
	Method                string  `json:"method"`
	ProjectID             *string `json:"project_id,omitempty"`
	CreatedAt             string  `json:"created_at" format:"date-time"`
	UpdatedAt             string  `json:"updated_at" format:"date-time"`
}

// CartLine is one template in a user's cart. PriceCents snapshots the
// template price at add time.
type CartLine struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	TemplateID string `json:"template_id"`
	PriceCents int64  `json:"price_cents"`
	AddedAt    string `json:"added_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
