package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/domain/audit"
	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
	"github.com/baron-png/quality-core/internal/middleware"
	"github.com/baron-png/quality-core/internal/port/collaborator"
	"github.com/baron-png/quality-core/internal/saga"
	"github.com/baron-png/quality-core/internal/service"
)

// memStore is an in-memory database.Store for handler tests.
type memStore struct {
	mu          sync.Mutex
	tenants     map[string]tenant.Tenant
	roles       map[string]role.Role
	departments map[string]department.Department
	users       map[string]user.User
	userRoles   map[string][]string
	programs    map[string]audit.Program
}

func newMemStore() *memStore {
	return &memStore{
		tenants:     make(map[string]tenant.Tenant),
		roles:       make(map[string]role.Role),
		departments: make(map[string]department.Department),
		users:       make(map[string]user.User),
		userRoles:   make(map[string][]string),
		programs:    make(map[string]audit.Program),
	}
}

func (s *memStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = *t
	return nil
}

func (s *memStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *memStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) UpdateTenantStatus(_ context.Context, id string, status tenant.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	s.tenants[id] = t
	return nil
}

func (s *memStore) DeleteTenant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, id)
	return nil
}

func (s *memStore) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID] = *r
	return nil
}

func (s *memStore) GetRoleByName(_ context.Context, tenantID, name string) (*role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Name == name {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) GetRolesByIDs(_ context.Context, tenantID string, ids []string) ([]role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []role.Role
	for _, id := range ids {
		if r, ok := s.roles[id]; ok && r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ListRoles(_ context.Context, tenantID string) ([]role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []role.Role
	for _, r := range s.roles {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, id)
	return nil
}

func (s *memStore) CreateDepartment(_ context.Context, d *department.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[d.ID] = *d
	return nil
}

func (s *memStore) GetDepartment(_ context.Context, id string) (*department.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (s *memStore) ListDepartments(_ context.Context, tenantID string) ([]department.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []department.Department
	for _, d := range s.departments {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) DepartmentExists(_ context.Context, tenantID, name, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.departments {
		if d.TenantID == tenantID && (d.Name == name || d.Code == code) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) DeleteDepartment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.departments, id)
	return nil
}

func (s *memStore) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	if len(u.RoleIDs) > 0 {
		s.userRoles[u.ID] = append([]string(nil), u.RoleIDs...)
	}
	return nil
}

func (s *memStore) GetUser(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.RoleIDs = append([]string(nil), s.userRoles[id]...)
	return &u, nil
}

func (s *memStore) ListUsers(_ context.Context, tenantID string) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []user.User
	for _, u := range s.users {
		if u.TenantID == tenantID {
			u.RoleIDs = append([]string(nil), s.userRoles[u.ID]...)
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.userRoles, id)
	return nil
}

func (s *memStore) AssignRoles(_ context.Context, userID string, roleIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRoles[userID] = append([]string(nil), roleIDs...)
	return nil
}

func (s *memStore) RemoveRoles(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userRoles, userID)
	return nil
}

func (s *memStore) CreateProgram(_ context.Context, p *audit.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[p.ID] = *p
	return nil
}

func (s *memStore) GetProgram(_ context.Context, id string) (*audit.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) ListPrograms(_ context.Context, tenantID string) ([]audit.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Program
	for _, p := range s.programs {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) UpdateProgramStatus(_ context.Context, id string, status audit.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	s.programs[id] = p
	return nil
}

// stubSyncer is a collaborator that always succeeds, unless err is set.
type stubSyncer struct {
	name string
	err  error
}

func (s *stubSyncer) Name() string                                       { return s.name }
func (s *stubSyncer) SyncTenant(context.Context, tenant.Tenant) error    { return s.err }
func (s *stubSyncer) SyncRole(context.Context, role.Role) error          { return s.err }
func (s *stubSyncer) SyncDepartment(context.Context, department.Department) error {
	return s.err
}
func (s *stubSyncer) SyncUser(context.Context, user.User) error { return s.err }

type stubIdentity struct {
	stubSyncer
	seq int
}

func (s *stubIdentity) Register(_ context.Context, req collaborator.RegisterRequest) (*collaborator.RegisteredUser, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.seq++
	return &collaborator.RegisteredUser{ID: fmt.Sprintf("identity-%d", s.seq), Email: req.Email}, nil
}

type testServer struct {
	store    *memStore
	document *stubSyncer
	router   chi.Router
}

func newTestServer() *testServer {
	store := newMemStore()
	identity := &stubIdentity{stubSyncer: stubSyncer{name: "identity"}}
	document := &stubSyncer{name: "document"}
	notification := &stubSyncer{name: "notification"}

	exec := saga.NewExecutor(saga.RetryPolicy{
		MaxAttempts: 3,
		Base:        time.Millisecond,
		Cap:         5 * time.Millisecond,
		Multiplier:  2,
	})
	orch := saga.NewOrchestrator(exec)

	h := &Handlers{
		Provisioning: service.NewProvisioningService(store, identity, document, notification, orch, nil, nil),
		Resync:       service.NewResyncService(store, identity, document, notification),
		Audit:        service.NewAuditService(store, nil, nil),
		Store:        store,
		Version:      "test",
	}

	r := chi.NewRouter()
	MountRoutes(r, h)
	return &testServer{store: store, document: document, router: r}
}

func adminClaims(tenantID string) *user.Claims {
	return &user.Claims{UserID: "admin-1", Email: "admin@acme.edu", Role: role.NameAdmin, TenantID: tenantID}
}

func mrClaims(tenantID string) *user.Claims {
	return &user.Claims{UserID: "mr-1", Email: "mr@acme.edu", Role: role.NameManagementRep, TenantID: tenantID}
}

// do issues a request with the given claims injected the way the auth
// middleware would.
func (ts *testServer) do(t *testing.T, method, path string, body any, claims *user.Claims) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if claims != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), claims, "test-token"))
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func tenantBody() tenant.CreateRequest {
	return tenant.CreateRequest{
		Name:           "Acme University",
		Domain:         "acme.edu",
		Email:          "contact@acme.edu",
		Type:           tenant.TypeUniversity,
		AdminEmail:     "admin@acme.edu",
		AdminFirstName: "Ada",
		AdminLastName:  "Stone",
		AdminPassword:  "s3cret-pass",
	}
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateTenant(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), adminClaims(""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	created := decodeBody[tenant.Tenant](t, rec)
	if created.ID == "" {
		t.Fatal("expected tenant id in response")
	}
	if created.Status != tenant.StatusPending {
		t.Fatalf("status = %s, want PENDING", created.Status)
	}
	if _, err := ts.store.GetTenant(context.Background(), created.ID); err != nil {
		t.Fatalf("tenant not committed: %v", err)
	}
}

func TestCreateTenantValidation(t *testing.T) {
	ts := newTestServer()

	body := tenantBody()
	body.AdminEmail = ""
	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", body, adminClaims(""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if !strings.Contains(resp.Error, "admin_email") {
		t.Fatalf("error = %q, want mention of admin_email", resp.Error)
	}
}

func TestCreateTenantRequiresAdmin(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), mrClaims("t1"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without claims = %d, want 401", rec.Code)
	}
}

func TestSagaRollbackResponse(t *testing.T) {
	ts := newTestServer()
	ts.document.err = fmt.Errorf("%w: tenant payload rejected", domain.ErrValidation)

	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), adminClaims(""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	resp := decodeBody[sagaErrorResponse](t, rec)
	if resp.State != string(saga.StateRolledBack) {
		t.Fatalf("state = %s, want rolled_back", resp.State)
	}
	if resp.Step == "" {
		t.Fatal("expected failing step name in response")
	}
	if len(ts.store.tenants) != 0 {
		t.Fatal("rolled-back tenant left in store")
	}
}

func TestTenantScopeEnforced(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/tenants/t1/users", nil, adminClaims("other-tenant"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestCreateAndListUsers(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), adminClaims(""))
	created := decodeBody[tenant.Tenant](t, rec)

	roles, _ := ts.store.ListRoles(context.Background(), created.ID)
	if len(roles) != 1 {
		t.Fatalf("roles = %d, want the ADMIN role", len(roles))
	}

	claims := adminClaims(created.ID)
	rec = ts.do(t, http.MethodPost, "/api/v1/tenants/"+created.ID+"/users", user.CreateRequest{
		Email:     "carol@acme.edu",
		FirstName: "Carol",
		LastName:  "Reyes",
		Password:  "password-1",
		RoleIDs:   []string{roles[0].ID},
	}, claims)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tenants/"+created.ID+"/users", nil, claims)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users status = %d", rec.Code)
	}
	users := decodeBody[[]user.User](t, rec)
	if len(users) != 2 { // admin + carol
		t.Fatalf("users = %d, want 2", len(users))
	}
}

func TestCreateDepartment(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), adminClaims(""))
	created := decodeBody[tenant.Tenant](t, rec)
	claims := adminClaims(created.ID)

	rec = ts.do(t, http.MethodPost, "/api/v1/tenants/"+created.ID+"/departments", department.CreateRequest{
		Name:          "Quality Assurance",
		Code:          "QA",
		HeadEmail:     "head@acme.edu",
		HeadFirstName: "Hana",
		HeadLastName:  "Lee",
		HeadPassword:  "password-1",
	}, claims)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	d := decodeBody[department.Department](t, rec)
	if d.HeadID == "" {
		t.Fatal("expected head user id on department")
	}
}

func TestUpdateTenantStatus(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), adminClaims(""))
	created := decodeBody[tenant.Tenant](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/v1/tenants/"+created.ID+"/status",
		map[string]string{"status": "ACTIVE"}, adminClaims(created.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	updated := decodeBody[tenant.Tenant](t, rec)
	if updated.Status != tenant.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", updated.Status)
	}

	rec = ts.do(t, http.MethodPut, "/api/v1/tenants/"+created.ID+"/status",
		map[string]string{"status": "BOGUS"}, adminClaims(created.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus status = %d, want 400", rec.Code)
	}
}

func TestResyncTenant(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/tenants", tenantBody(), adminClaims(""))
	created := decodeBody[tenant.Tenant](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/tenants/"+created.ID+"/resync", nil, adminClaims(created.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/tenants/nope/resync", nil, adminClaims("nope"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown tenant status = %d, want 404", rec.Code)
	}
}

func TestAuditProgramLifecycle(t *testing.T) {
	ts := newTestServer()
	mr := mrClaims("t1")
	admin := adminClaims("t1")

	rec := ts.do(t, http.MethodPost, "/api/v1/audit-programs", audit.CreateRequest{Name: "Annual audit"}, mr)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	p := decodeBody[audit.Program](t, rec)
	if p.Status != audit.StatusDraft {
		t.Fatalf("status = %s, want DRAFT", p.Status)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/audit-programs/"+p.ID+"/submit", nil, mr)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/audit-programs/"+p.ID+"/approve", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body = %s", rec.Code, rec.Body.String())
	}
	approved := decodeBody[audit.Program](t, rec)
	if approved.Status != audit.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", approved.Status)
	}

	// Approving an active program is not a defined transition.
	rec = ts.do(t, http.MethodPost, "/api/v1/audit-programs/"+p.ID+"/approve", nil, admin)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second approve status = %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/audit-programs/"+p.ID+"/reopen", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("reopen status = %d", rec.Code)
	}
}

func TestAuditProgramRoleGuards(t *testing.T) {
	ts := newTestServer()
	mr := mrClaims("t1")

	rec := ts.do(t, http.MethodPost, "/api/v1/audit-programs", audit.CreateRequest{Name: "Annual audit"}, mr)
	p := decodeBody[audit.Program](t, rec)

	ts.do(t, http.MethodPost, "/api/v1/audit-programs/"+p.ID+"/submit", nil, mr)

	// MR may not approve.
	rec = ts.do(t, http.MethodPost, "/api/v1/audit-programs/"+p.ID+"/approve", nil, mr)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("mr approve status = %d, want 403", rec.Code)
	}
}

func TestAuditProgramCrossTenant(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/audit-programs", audit.CreateRequest{Name: "Annual audit"}, mrClaims("t1"))
	p := decodeBody[audit.Program](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/v1/audit-programs/"+p.ID, nil, mrClaims("t2"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant get status = %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/audit-programs/"+p.ID+"/submit", nil, mrClaims("t2"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant submit status = %d, want 403", rec.Code)
	}
}
