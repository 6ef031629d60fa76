package engine_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepup/internal/config"
	"keepup/internal/db"
	"keepup/internal/domain"
	"keepup/internal/engine"
	"keepup/internal/migrate"
	"keepup/internal/payment"
	"keepup/internal/repo"
)

// captureSender keeps sent mail in memory so tests can read OTP codes.
type captureSender struct {
	bodies []string
}

func (s *captureSender) Send(_ context.Context, _, _, body string) error {
	s.bodies = append(s.bodies, body)
	return nil
}

var otpPattern = regexp.MustCompile(`\d{6}`)

func (s *captureSender) lastCode() string {
	if len(s.bodies) == 0 {
		return ""
	}
	return otpPattern.FindString(s.bodies[len(s.bodies)-1])
}

type testEnv struct {
	Engine  engine.Engine
	Mail    *captureSender
	Sandbox *payment.Sandbox
	Ctx     context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	eng := engine.New(conn, config.Default(), nil)
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	mail := &captureSender{}
	eng.Mailer = mail
	sandbox, ok := eng.Gateways["sandbox"].(*payment.Sandbox)
	require.True(t, ok, "default config enables the sandbox gateway")
	return testEnv{Engine: eng, Mail: mail, Sandbox: sandbox, Ctx: context.Background()}
}

func (env testEnv) user(t *testing.T, email string) domain.User {
	t.Helper()
	u, err := env.Engine.Register(env.Ctx, email, "Test User", "swordfish1")
	require.NoError(t, err)
	return u
}

// seedTemplate builds an author project with a small item tree and
// publishes it at the given price.
func (env testEnv) seedTemplate(t *testing.T, authorID string, priceCents int64) domain.Template {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Title: "Launch checklist", Description: "Everything before launch", OwnerID: authorID,
	})
	require.NoError(t, err)
	list, err := env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{
		ProjectID: p.ID, Kind: domain.KindList, Title: "Prep",
		Content: `[{"text":"book venue","checked":false}]`, ActorID: authorID,
	})
	require.NoError(t, err)
	_, err = env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{
		ProjectID: p.ID, Kind: domain.KindTask, Title: "Send invites",
		ParentID: list.ID, Status: "done", Priority: "high",
		AssigneeID: authorID, DueDate: "2026-02-01T00:00:00Z", ActorID: authorID,
	})
	require.NoError(t, err)
	_, err = env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{
		ProjectID: p.ID, Kind: domain.KindPage, Title: "Notes", Content: "remember the cake", ActorID: authorID,
	})
	require.NoError(t, err)

	tpl, err := env.Engine.PublishTemplate(env.Ctx, engine.PublishOptions{
		ProjectID: p.ID, PriceCents: priceCents, ActorID: authorID,
	})
	require.NoError(t, err)
	return tpl
}

func TestFreeTemplateClaimClonesImmediately(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	tpl := env.seedTemplate(t, author.ID, 0)

	res, err := env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	require.NoError(t, err)
	assert.Empty(t, res.RedirectURL)
	require.NotEmpty(t, res.ProjectID)
	assert.Equal(t, domain.PurchaseCompleted, res.Purchase.Status)

	items, err := env.Engine.ListItems(env.Ctx, buyer.ID, repo.ItemFilters{ProjectID: res.ProjectID})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestInstantiationDefaults(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	tpl := env.seedTemplate(t, author.ID, 0)

	res, err := env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	require.NoError(t, err)

	p, err := env.Engine.GetProject(env.Ctx, res.ProjectID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, p.OwnerID)
	assert.Equal(t, "🚀", p.Icon, "missing snapshot icon falls back to the rocket")
	require.Len(t, p.Members, 1)
	assert.Equal(t, domain.RoleOwner, p.Members[0].Role)
	assert.False(t, p.Members[0].Pinned)

	items, err := env.Engine.ListItems(env.Ctx, buyer.ID, repo.ItemFilters{ProjectID: res.ProjectID})
	require.NoError(t, err)
	require.Len(t, items, 3)

	byTitle := map[string]domain.Item{}
	for _, it := range items {
		byTitle[it.Title] = it
		require.NotNil(t, it.AssigneeID)
		assert.Equal(t, buyer.ID, *it.AssigneeID, "assignee is always the buyer")
		assert.Nil(t, it.DueDate, "due dates never carry over")
	}
	task := byTitle["Send invites"]
	assert.Equal(t, "done", task.Status, "present status is copied")
	assert.Equal(t, "high", task.Priority)
	require.NotNil(t, task.ParentID)
	assert.Equal(t, byTitle["Prep"].ID, *task.ParentID, "parent is remapped to the cloned list")
	assert.NotEqual(t, tpl.ID, byTitle["Prep"].ID)

	list := byTitle["Prep"]
	assert.Equal(t, "todo", list.Status, "absent status defaults")
	assert.Equal(t, "medium", list.Priority, "absent priority defaults")
}

func TestPaidPurchaseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	tpl := env.seedTemplate(t, author.ID, 4200)

	res, err := env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchasePending, res.Purchase.Status)
	assert.NotEmpty(t, res.RedirectURL)
	require.NotNil(t, res.Purchase.ProviderPaymentIndex)
	pidx := *res.Purchase.ProviderPaymentIndex

	// Provider still reports pending: no transition, retryable.
	_, err = env.Engine.VerifyPurchase(env.Ctx, pidx)
	assert.ErrorIs(t, err, engine.ErrPaymentPending)
	pu, err := env.Engine.GetPurchase(env.Ctx, res.Purchase.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchasePending, pu.Status)

	env.Sandbox.Settle(pidx)
	first, err := env.Engine.VerifyPurchase(env.Ctx, pidx)
	require.NoError(t, err)
	require.NotEmpty(t, first.ProjectID)
	assert.Equal(t, domain.PurchaseCompleted, first.Purchase.Status)
	require.NotNil(t, first.Purchase.ProviderTransactionID)

	// Re-verification succeeds idempotently without a second clone.
	second, err := env.Engine.VerifyPurchase(env.Ctx, pidx)
	require.NoError(t, err)
	assert.Equal(t, first.ProjectID, second.ProjectID)

	projects, err := env.Engine.ListProjects(env.Ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1, "exactly one project for one purchase")
}

func TestOwnershipGateBlocksRepurchase(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	tpl := env.seedTemplate(t, author.ID, 4200)

	res, err := env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	require.NoError(t, err)
	env.Sandbox.Settle(*res.Purchase.ProviderPaymentIndex)
	_, err = env.Engine.VerifyPurchase(env.Ctx, *res.Purchase.ProviderPaymentIndex)
	require.NoError(t, err)

	_, err = env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	assert.ErrorIs(t, err, engine.ErrAlreadyOwned)

	// A bought template can no longer be unlisted.
	err = env.Engine.DeleteTemplate(env.Ctx, tpl.ID, author.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot delete")

	// A different buyer is unaffected.
	other := env.user(t, "other@example.com")
	_, err = env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: other.ID})
	require.NoError(t, err)
}

func TestVerifyUnknownPaymentIndex(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@example.com")

	_, err := env.Engine.VerifyPurchase(env.Ctx, "no-such-pidx")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	projects, err := env.Engine.ListProjects(env.Ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, projects, "no project created for an unknown index")
}

func TestFailedPaymentIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	tpl := env.seedTemplate(t, author.ID, 4200)

	res, err := env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	require.NoError(t, err)
	pidx := *res.Purchase.ProviderPaymentIndex
	env.Sandbox.Cancel(pidx)

	_, err = env.Engine.VerifyPurchase(env.Ctx, pidx)
	assert.ErrorIs(t, err, engine.ErrPaymentFailed)
	pu, err := env.Engine.GetPurchase(env.Ctx, res.Purchase.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseFailed, pu.Status)

	// A settled provider state no longer matters: FAILED is terminal.
	env.Sandbox.Settle(pidx)
	_, err = env.Engine.VerifyPurchase(env.Ctx, pidx)
	assert.ErrorIs(t, err, engine.ErrPurchaseClosed)
}

func TestSnapshotIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	tpl := env.seedTemplate(t, author.ID, 0)

	projects, err := env.Engine.ListProjects(env.Ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	items, err := env.Engine.ListItems(env.Ctx, author.ID, repo.ItemFilters{ProjectID: projects[0].ID})
	require.NoError(t, err)

	newTitle := "Renamed after publish"
	_, err = env.Engine.UpdateItem(env.Ctx, items[0].ID, author.ID, repo.ItemUpdate{Title: &newTitle})
	require.NoError(t, err)

	_, snapshot, err := env.Engine.GetTemplate(env.Ctx, tpl.ID)
	require.NoError(t, err)
	for _, it := range snapshot {
		assert.NotEqual(t, newTitle, it.Title, "snapshot items never track live edits")
	}
}

func TestRepublishGetsFreshSnapshotIDs(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")

	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Title: "Onboarding", OwnerID: author.ID})
	require.NoError(t, err)
	list, err := env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{
		ProjectID: p.ID, Kind: domain.KindList, Title: "Week one", ActorID: author.ID,
	})
	require.NoError(t, err)
	task, err := env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{
		ProjectID: p.ID, Kind: domain.KindTask, Title: "Meet the team", ParentID: list.ID, ActorID: author.ID,
	})
	require.NoError(t, err)

	first, err := env.Engine.PublishTemplate(env.Ctx, engine.PublishOptions{ProjectID: p.ID, ActorID: author.ID})
	require.NoError(t, err)
	second, err := env.Engine.PublishTemplate(env.Ctx, engine.PublishOptions{ProjectID: p.ID, ActorID: author.ID})
	require.NoError(t, err, "the same project can be published again")

	seen := map[string]bool{list.ID: true, task.ID: true}
	for _, tplID := range []string{first.ID, second.ID} {
		_, snapshot, err := env.Engine.GetTemplate(env.Ctx, tplID)
		require.NoError(t, err)
		require.Len(t, snapshot, 2)
		byTitle := make(map[string]domain.TemplateItem, len(snapshot))
		for _, it := range snapshot {
			assert.False(t, seen[it.ID], "snapshot rows carry their own identifiers")
			seen[it.ID] = true
			byTitle[it.Title] = it
		}
		require.NotNil(t, byTitle["Meet the team"].ParentID)
		assert.Equal(t, byTitle["Week one"].ID, *byTitle["Meet the team"].ParentID)
	}
}

func TestTemplateMetaEditsAreAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	stranger := env.user(t, "stranger@example.com")
	tpl := env.seedTemplate(t, author.ID, 500)

	price := int64(900)
	_, err := env.Engine.UpdateTemplateMeta(env.Ctx, tpl.ID, stranger.ID, repo.TemplateUpdate{PriceCents: &price})
	assert.ErrorIs(t, err, engine.ErrForbidden)
	err = env.Engine.DeleteTemplate(env.Ctx, tpl.ID, stranger.ID)
	assert.ErrorIs(t, err, engine.ErrForbidden)

	updated, err := env.Engine.UpdateTemplateMeta(env.Ctx, tpl.ID, author.ID, repo.TemplateUpdate{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, price, updated.PriceCents)
}

func TestPublishRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	member := env.user(t, "member@example.com")
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Title: "Private", OwnerID: owner.ID})
	require.NoError(t, err)
	require.NoError(t, env.Engine.AddMember(env.Ctx, p.ID, owner.ID, member.ID, domain.RoleMember))

	_, err = env.Engine.PublishTemplate(env.Ctx, engine.PublishOptions{ProjectID: p.ID, ActorID: member.ID})
	assert.ErrorIs(t, err, engine.ErrForbidden)
}

func TestDeleteContainerCascadesOneLevel(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Title: "Tree", OwnerID: owner.ID})
	require.NoError(t, err)

	list, err := env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{ProjectID: p.ID, Kind: domain.KindList, Title: "outer", ActorID: owner.ID})
	require.NoError(t, err)
	page, err := env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{ProjectID: p.ID, Kind: domain.KindPage, Title: "middle", ParentID: list.ID, ActorID: owner.ID})
	require.NoError(t, err)
	task, err := env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{ProjectID: p.ID, Kind: domain.KindTask, Title: "leaf", ParentID: page.ID, ActorID: owner.ID})
	require.NoError(t, err)

	require.NoError(t, env.Engine.DeleteItem(env.Ctx, list.ID, owner.ID))

	_, err = env.Engine.GetItem(env.Ctx, page.ID, owner.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound, "direct child goes with its container")
	_, err = env.Engine.GetItem(env.Ctx, task.ID, owner.ID)
	assert.NoError(t, err, "grandchildren are not chased")
}

func TestItemParentMustBeContainer(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Title: "P", OwnerID: owner.ID})
	require.NoError(t, err)
	task, err := env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{ProjectID: p.ID, Kind: domain.KindTask, Title: "t", ActorID: owner.ID})
	require.NoError(t, err)

	_, err = env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{
		ProjectID: p.ID, Kind: domain.KindTask, Title: "child", ParentID: task.ID, ActorID: owner.ID,
	})
	require.Error(t, err, "a task cannot parent other items")

	_, err = env.Engine.CreateItem(env.Ctx, engine.ItemCreateOptions{
		ProjectID: p.ID, Kind: domain.KindList, Title: "bad content", Content: "not json", ActorID: owner.ID,
	})
	require.Error(t, err, "list content must be a checklist array")
}

func TestProjectAccessRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com")
	outsider := env.user(t, "outsider@example.com")
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Title: "P", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = env.Engine.GetProject(env.Ctx, p.ID, outsider.ID)
	assert.ErrorIs(t, err, engine.ErrForbidden)
	err = env.Engine.DeleteProject(env.Ctx, p.ID, outsider.ID)
	assert.ErrorIs(t, err, engine.ErrForbidden)

	require.NoError(t, env.Engine.AddMember(env.Ctx, p.ID, owner.ID, outsider.ID, domain.RoleMember))
	_, err = env.Engine.GetProject(env.Ctx, p.ID, outsider.ID)
	require.NoError(t, err)
	// Members still cannot delete.
	err = env.Engine.DeleteProject(env.Ctx, p.ID, outsider.ID)
	assert.ErrorIs(t, err, engine.ErrForbidden)
}

func TestCartCheckout(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	free := env.seedTemplate(t, author.ID, 0)
	paid := env.seedTemplate(t, author.ID, 1500)

	_, err := env.Engine.AddToCart(env.Ctx, buyer.ID, free.ID)
	require.NoError(t, err)
	_, err = env.Engine.AddToCart(env.Ctx, buyer.ID, paid.ID)
	require.NoError(t, err)
	// Double-add is a no-op.
	_, err = env.Engine.AddToCart(env.Ctx, buyer.ID, paid.ID)
	require.NoError(t, err)
	lines, err := env.Engine.ListCart(env.Ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	out, err := env.Engine.CheckoutCart(env.Ctx, buyer.ID, "")
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, line := range out {
		require.Empty(t, line.Error)
		switch line.TemplateID {
		case free.ID:
			assert.NotEmpty(t, line.ProjectID, "free line clones immediately")
		case paid.ID:
			assert.NotEmpty(t, line.RedirectURL, "paid line redirects to the provider")
		default:
			t.Fatalf("unexpected line for template %s", line.TemplateID)
		}
	}
	lines, err = env.Engine.ListCart(env.Ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "initiated lines leave the cart")
}

func TestOTPLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "login@example.com")

	_, err := env.Engine.Login(env.Ctx, u.Email, "wrong-password")
	assert.ErrorIs(t, err, engine.ErrInvalidCredentials)

	c, err := env.Engine.Login(env.Ctx, u.Email, "swordfish1")
	require.NoError(t, err)
	code := env.Mail.lastCode()
	require.NotEmpty(t, code, "login mails a 6-digit code")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, _, err = env.Engine.VerifyOTP(env.Ctx, c.ID, wrong)
	assert.ErrorIs(t, err, engine.ErrInvalidOTP)

	token, got, err := env.Engine.VerifyOTP(env.Ctx, c.ID, code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, got.ID)

	// A consumed challenge cannot be replayed.
	_, _, err = env.Engine.VerifyOTP(env.Ctx, c.ID, code)
	assert.ErrorIs(t, err, engine.ErrInvalidOTP)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "dup@example.com")
	_, err := env.Engine.Register(env.Ctx, "dup@example.com", "Again", "swordfish1")
	assert.ErrorIs(t, err, engine.ErrEmailTaken)
}

func TestEmptyTemplateClonesEmptyProject(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Title: "Bare", OwnerID: author.ID})
	require.NoError(t, err)
	tpl, err := env.Engine.PublishTemplate(env.Ctx, engine.PublishOptions{ProjectID: p.ID, ActorID: author.ID})
	require.NoError(t, err)

	res, err := env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	require.NoError(t, err)
	require.NotEmpty(t, res.ProjectID)
	items, err := env.Engine.ListItems(env.Ctx, buyer.ID, repo.ItemFilters{ProjectID: res.ProjectID})
	require.NoError(t, err)
	assert.Empty(t, items, "zero items is legal")
}

func TestConcurrentVerificationsCreateOneProject(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author@example.com")
	buyer := env.user(t, "buyer@example.com")
	tpl := env.seedTemplate(t, author.ID, 1000)

	res, err := env.Engine.InitiatePurchase(env.Ctx, engine.InitiateOptions{TemplateID: tpl.ID, BuyerID: buyer.ID})
	require.NoError(t, err)
	pidx := *res.Purchase.ProviderPaymentIndex
	env.Sandbox.Settle(pidx)

	const n = 4
	results := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			out, err := env.Engine.VerifyPurchase(env.Ctx, pidx)
			if err != nil {
				errs <- err
				return
			}
			results <- out.ProjectID
		}()
	}
	var projectIDs []string
	for i := 0; i < n; i++ {
		select {
		case id := <-results:
			projectIDs = append(projectIDs, id)
		case err := <-errs:
			t.Fatalf("verify: %v", err)
		case <-time.After(10 * time.Second):
			t.Fatal("verification timed out")
		}
	}
	require.Len(t, projectIDs, n)
	for _, id := range projectIDs {
		assert.Equal(t, projectIDs[0], id, "every caller sees the same project")
	}
	projects, err := env.Engine.ListProjects(env.Ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1, fmt.Sprintf("%d concurrent verifications, one clone", n))
}
