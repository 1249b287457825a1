package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/domain/audit"
	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
	"github.com/baron-png/quality-core/internal/port/collaborator"
	"github.com/baron-png/quality-core/internal/port/messagequeue"
)

// fakeStore is an in-memory database.Store. failOn injects an error for a
// named method ("CreateRole", "DeleteRole", ...) to drive abort paths.
type fakeStore struct {
	mu          sync.Mutex
	tenants     map[string]tenant.Tenant
	roles       map[string]role.Role
	departments map[string]department.Department
	users       map[string]user.User
	userRoles   map[string][]string
	programs    map[string]audit.Program
	failOn      map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:     make(map[string]tenant.Tenant),
		roles:       make(map[string]role.Role),
		departments: make(map[string]department.Department),
		users:       make(map[string]user.User),
		userRoles:   make(map[string][]string),
		programs:    make(map[string]audit.Program),
		failOn:      make(map[string]error),
	}
}

func (s *fakeStore) fail(method string) error {
	if err := s.failOn[method]; err != nil {
		return err
	}
	return nil
}

func (s *fakeStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateTenant"); err != nil {
		return err
	}
	for _, existing := range s.tenants {
		if existing.Domain == t.Domain {
			return fmt.Errorf("tenant domain: %w", domain.ErrConflict)
		}
	}
	s.tenants[t.ID] = *t
	return nil
}

func (s *fakeStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (s *fakeStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenant.Tenant
	for _, t := range s.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) UpdateTenantStatus(_ context.Context, id string, status tenant.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateTenantStatus"); err != nil {
		return err
	}
	t, ok := s.tenants[id]
	if !ok {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	t.Status = status
	s.tenants[id] = t
	return nil
}

func (s *fakeStore) DeleteTenant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteTenant"); err != nil {
		return err
	}
	delete(s.tenants, id)
	return nil
}

func (s *fakeStore) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateRole"); err != nil {
		return err
	}
	s.roles[r.ID] = *r
	return nil
}

func (s *fakeStore) GetRoleByName(_ context.Context, tenantID, name string) (*role.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Name == name {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("role %s: %w", name, domain.ErrNotFound)
}

func (s *fakeStore) GetRolesByIDs(_ context.Context, tenantID string, ids []string) ([]role.Role, error) {
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

func (s *fakeStore) ListRoles(_ context.Context, tenantID string) ([]role.Role, error) {
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

func (s *fakeStore) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteRole"); err != nil {
		return err
	}
	delete(s.roles, id)
	return nil
}

func (s *fakeStore) CreateDepartment(_ context.Context, d *department.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateDepartment"); err != nil {
		return err
	}
	s.departments[d.ID] = *d
	return nil
}

func (s *fakeStore) GetDepartment(_ context.Context, id string) (*department.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[id]
	if !ok {
		return nil, fmt.Errorf("department %s: %w", id, domain.ErrNotFound)
	}
	return &d, nil
}

func (s *fakeStore) ListDepartments(_ context.Context, tenantID string) ([]department.Department, error) {
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

func (s *fakeStore) DepartmentExists(_ context.Context, tenantID, name, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.departments {
		if d.TenantID == tenantID && (d.Name == name || d.Code == code) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) DeleteDepartment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteDepartment"); err != nil {
		return err
	}
	delete(s.departments, id)
	return nil
}

func (s *fakeStore) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUser"); err != nil {
		return err
	}
	// Email is unique across tenants, same as the store's constraint.
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, domain.ErrConflict)
		}
	}
	s.users[u.ID] = *u
	if len(u.RoleIDs) > 0 {
		s.userRoles[u.ID] = append(s.userRoles[u.ID], u.RoleIDs...)
	}
	return nil
}

func (s *fakeStore) GetUser(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	u.RoleIDs = s.userRoles[id]
	return &u, nil
}

func (s *fakeStore) ListUsers(_ context.Context, tenantID string) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []user.User
	for id, u := range s.users {
		if u.TenantID == tenantID {
			u.RoleIDs = s.userRoles[id]
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteUser"); err != nil {
		return err
	}
	delete(s.users, id)
	delete(s.userRoles, id)
	return nil
}

func (s *fakeStore) AssignRoles(_ context.Context, userID string, roleIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AssignRoles"); err != nil {
		return err
	}
	for _, rid := range roleIDs {
		found := false
		for _, existing := range s.userRoles[userID] {
			if existing == rid {
				found = true
				break
			}
		}
		if !found {
			s.userRoles[userID] = append(s.userRoles[userID], rid)
		}
	}
	return nil
}

func (s *fakeStore) RemoveRoles(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("RemoveRoles"); err != nil {
		return err
	}
	delete(s.userRoles, userID)
	return nil
}

func (s *fakeStore) CreateProgram(_ context.Context, p *audit.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[p.ID] = *p
	return nil
}

func (s *fakeStore) GetProgram(_ context.Context, id string) (*audit.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return nil, fmt.Errorf("audit program %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *fakeStore) ListPrograms(_ context.Context, tenantID string) ([]audit.Program, error) {
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

func (s *fakeStore) UpdateProgramStatus(_ context.Context, id string, status audit.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateProgramStatus"); err != nil {
		return err
	}
	p, ok := s.programs[id]
	if !ok {
		return fmt.Errorf("audit program %s: %w", id, domain.ErrNotFound)
	}
	p.Status = status
	s.programs[id] = p
	return nil
}

// fakeSyncer records sync calls in order as "method:id" strings. failures
// maps a call key to an error sequence consumed one per attempt.
type fakeSyncer struct {
	mu       sync.Mutex
	name     string
	calls    []string
	failures map[string][]error

	// failAll* reject every call of that entity type with a fatal
	// validation error, regardless of id.
	failAllTenants     bool
	failAllDepartments bool
}

func newFakeSyncer(name string) *fakeSyncer {
	return &fakeSyncer{name: name, failures: make(map[string][]error)}
}

// failWith queues errs for the given call key; each attempt consumes one.
// An exhausted queue means success on subsequent attempts.
func (f *fakeSyncer) failWith(key string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeSyncer) record(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if queue := f.failures[key]; len(queue) > 0 {
		err := queue[0]
		f.failures[key] = queue[1:]
		return err
	}
	return nil
}

func (f *fakeSyncer) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSyncer) Name() string { return f.name }

func (f *fakeSyncer) SyncTenant(_ context.Context, t tenant.Tenant) error {
	if err := f.record("tenant:" + t.ID); err != nil {
		return err
	}
	if f.failAllTenants {
		return fmt.Errorf("%s rejected tenant %s: %w", f.name, t.ID, domain.ErrValidation)
	}
	return nil
}

func (f *fakeSyncer) SyncRole(_ context.Context, r role.Role) error {
	return f.record("role:" + r.Name)
}

func (f *fakeSyncer) SyncDepartment(_ context.Context, d department.Department) error {
	if err := f.record("department:" + d.Code); err != nil {
		return err
	}
	if f.failAllDepartments {
		return fmt.Errorf("%s rejected department %s: %w", f.name, d.Code, domain.ErrValidation)
	}
	return nil
}

func (f *fakeSyncer) SyncUser(_ context.Context, u user.User) error {
	return f.record("user:" + u.Email)
}

// fakeIdentity adds registration to fakeSyncer, issuing sequential ids.
type fakeIdentity struct {
	*fakeSyncer
	nextID int
	regs   []collaborator.RegisterRequest
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{fakeSyncer: newFakeSyncer("identity")}
}

func (f *fakeIdentity) Register(_ context.Context, req collaborator.RegisterRequest) (*collaborator.RegisteredUser, error) {
	if err := f.record("register:" + req.Email); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.regs = append(f.regs, req)
	return &collaborator.RegisteredUser{
		ID:    fmt.Sprintf("identity-%d", f.nextID),
		Email: req.Email,
	}, nil
}

// fakeQueue records published events and captures subscription handlers so
// tests can invoke them directly.
type fakeQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	handlers  map[string]messagequeue.Handler
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		published: make(map[string][][]byte),
		handlers:  make(map[string]messagequeue.Handler),
	}
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = h
	return func() {}, nil
}

func (q *fakeQueue) Close() error { return nil }
