package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/careflow-service/internal/domain"
)

// MemoryStore is a mutex-guarded in-memory implementation of every
// repository interface. It backs the service when no POSTGRES_DSN is
// configured and is the store used by tests. Not-found conditions surface as
// pgx.ErrNoRows so callers behave identically against either backend.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[string]domain.Account
	approvals     map[string]domain.ApprovalRequest
	roles         map[string]domain.RoleAssignment
	notifications map[string]domain.Notification
	appointments  map[string]domain.SelfServiceAppointment
	schedule      map[string]domain.ScheduledAppointment
	patientLinks  map[string]*string
}

// NewMemoryStore initializes empty in-memory storage.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[string]domain.Account),
		approvals:     make(map[string]domain.ApprovalRequest),
		roles:         make(map[string]domain.RoleAssignment),
		notifications: make(map[string]domain.Notification),
		appointments:  make(map[string]domain.SelfServiceAppointment),
		schedule:      make(map[string]domain.ScheduledAppointment),
		patientLinks:  make(map[string]*string),
	}
}

// Per-aggregate views satisfying the repository interfaces. The repository
// method names collide across aggregates (Create, GetByID), so the views are
// thin adapters over the shared store.

type memoryAccounts struct{ s *MemoryStore }
type memoryApprovals struct{ s *MemoryStore }
type memoryNotifications struct{ s *MemoryStore }
type memoryAppointments struct{ s *MemoryStore }
type memorySchedule struct{ s *MemoryStore }

var (
	_ AccountRepository      = memoryAccounts{}
	_ ApprovalRepository     = memoryApprovals{}
	_ RoleRepository         = (*MemoryStore)(nil)
	_ NotificationRepository = memoryNotifications{}
	_ AppointmentRepository  = memoryAppointments{}
	_ ScheduleRepository     = memorySchedule{}
)

// Accounts returns the AccountRepository view.
func (s *MemoryStore) Accounts() AccountRepository { return memoryAccounts{s} }

// Approvals returns the ApprovalRepository view.
func (s *MemoryStore) Approvals() ApprovalRepository { return memoryApprovals{s} }

// Roles returns the RoleRepository view.
func (s *MemoryStore) Roles() RoleRepository { return s }

// Notifications returns the NotificationRepository view.
func (s *MemoryStore) Notifications() NotificationRepository { return memoryNotifications{s} }

// Appointments returns the self-service AppointmentRepository view.
func (s *MemoryStore) Appointments() AppointmentRepository { return memoryAppointments{s} }

// Schedule returns the staff-scheduled ScheduleRepository view.
func (s *MemoryStore) Schedule() ScheduleRepository { return memorySchedule{s} }

func (v memoryAccounts) Create(ctx context.Context, account *domain.Account) error {
	return v.s.createAccount(ctx, account)
}
func (v memoryAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return v.s.getAccountByID(ctx, id)
}
func (v memoryAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return v.s.getAccountByEmail(ctx, email)
}

func (v memoryApprovals) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	return v.s.createApproval(ctx, req)
}
func (v memoryApprovals) GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	return v.s.getApprovalByID(ctx, id)
}
func (v memoryApprovals) LatestByIdentity(ctx context.Context, identity string) (*domain.ApprovalRequest, error) {
	return v.s.latestByIdentity(ctx, identity)
}
func (v memoryApprovals) HasPending(ctx context.Context, identity string) (bool, error) {
	return v.s.hasPending(ctx, identity)
}
func (v memoryApprovals) ListPending(ctx context.Context) ([]domain.ApprovalRequest, error) {
	return v.s.listPending(ctx)
}
func (v memoryApprovals) Decide(ctx context.Context, id string, decision domain.ApprovalDecision, decidedBy string) (*domain.ApprovalRequest, error) {
	return v.s.decide(ctx, id, decision, decidedBy)
}

func (v memoryNotifications) Create(ctx context.Context, n *domain.Notification) error {
	return v.s.createNotification(ctx, n)
}
func (v memoryNotifications) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	return v.s.getNotificationByID(ctx, id)
}
func (v memoryNotifications) ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	return v.s.listByRecipient(ctx, recipient, limit)
}
func (v memoryNotifications) MarkRead(ctx context.Context, id string) error {
	return v.s.markRead(ctx, id)
}

func (v memoryAppointments) GetByID(ctx context.Context, id string) (*domain.SelfServiceAppointment, error) {
	return v.s.getAppointmentByID(ctx, id)
}
func (v memoryAppointments) SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	return v.s.setAppointmentStatus(ctx, id, status)
}

func (v memorySchedule) GetByID(ctx context.Context, id string) (*domain.ScheduledAppointment, error) {
	return v.s.getScheduleEntryByID(ctx, id)
}
func (v memorySchedule) SetStatus(ctx context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	return v.s.setScheduleStatus(ctx, id, status)
}
func (v memorySchedule) LinkedAccount(ctx context.Context, patientID string) (*string, error) {
	return v.s.linkedAccount(ctx, patientID)
}

// --- accounts ---

func (s *MemoryStore) createAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return nil
}

func (s *MemoryStore) getAccountByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &account, nil
}

func (s *MemoryStore) getAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.Email == email {
			copied := account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// --- approval requests ---

func (s *MemoryStore) createApproval(_ context.Context, req *domain.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	req.ID = uuid.NewString()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.approvals[req.ID] = *req
	return nil
}

func (s *MemoryStore) getApprovalByID(_ context.Context, id string) (*domain.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.approvals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &req, nil
}

func (s *MemoryStore) latestByIdentity(_ context.Context, identity string) (*domain.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.ApprovalRequest
	for _, req := range s.approvals {
		if req.Identity != identity {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			copied := req
			latest = &copied
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return latest, nil
}

func (s *MemoryStore) hasPending(_ context.Context, identity string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.approvals {
		if req.Identity == identity && req.Status == domain.ApprovalStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) listPending(_ context.Context) ([]domain.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ApprovalRequest
	for _, req := range s.approvals {
		if req.Status == domain.ApprovalStatusPending {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *MemoryStore) decide(_ context.Context, id string, decision domain.ApprovalDecision, decidedBy string) (*domain.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.approvals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if req.Status != domain.ApprovalStatusPending {
		return nil, ErrAlreadyDecided
	}

	req.Status = domain.ApprovalStatusRejected
	if decision == domain.DecisionApprove {
		req.Status = domain.ApprovalStatusApproved
		s.roles[req.Identity] = domain.RoleAssignment{
			Identity:  req.Identity,
			Role:      req.StoredRole,
			CreatedAt: time.Now(),
		}
	}
	req.DecidedBy = &decidedBy
	req.UpdatedAt = time.Now()
	s.approvals[id] = req
	return &req, nil
}

// --- role assignments ---

func (s *MemoryStore) Assign(_ context.Context, identity string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles[identity] = domain.RoleAssignment{Identity: identity, Role: role, CreatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) GetByIdentity(_ context.Context, identity string) (*domain.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assignment, ok := s.roles[identity]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &assignment, nil
}

func (s *MemoryStore) ListIdentitiesByRole(_ context.Context, role domain.Role) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		identity string
		at       time.Time
	}
	var entries []entry
	for _, assignment := range s.roles {
		if assignment.Role == role {
			entries = append(entries, entry{assignment.Identity, assignment.CreatedAt})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	identities := make([]string, 0, len(entries))
	for _, e := range entries {
		identities = append(identities, e.identity)
	}
	return identities, nil
}

// --- notifications ---

func (s *MemoryStore) createNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	n.Read = false
	s.notifications[n.ID] = *n
	return nil
}

func (s *MemoryStore) getNotificationByID(_ context.Context, id string) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &n, nil
}

func (s *MemoryStore) listByRecipient(_ context.Context, recipient string, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var result []domain.Notification
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) markRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

// --- self-service appointments ---

func (s *MemoryStore) getAppointmentByID(_ context.Context, id string) (*domain.SelfServiceAppointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &appt, nil
}

func (s *MemoryStore) setAppointmentStatus(_ context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return false, nil
	}
	appt.Status = status
	appt.UpdatedAt = time.Now()
	s.appointments[id] = appt
	return true, nil
}

// --- staff-scheduled appointments ---

func (s *MemoryStore) getScheduleEntryByID(_ context.Context, id string) (*domain.ScheduledAppointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.schedule[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &appt, nil
}

func (s *MemoryStore) setScheduleStatus(_ context.Context, id string, status domain.AppointmentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.schedule[id]
	if !ok {
		return false, nil
	}
	appt.Status = status
	appt.UpdatedAt = time.Now()
	s.schedule[id] = appt
	return true, nil
}

func (s *MemoryStore) linkedAccount(_ context.Context, patientID string) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.patientLinks[patientID]
	if !ok {
		return nil, nil
	}
	return accountID, nil
}

// --- seeding helpers (dev mode and tests) ---

// SeedSelfServiceAppointment inserts a self-service appointment row.
func (s *MemoryStore) SeedSelfServiceAppointment(appt domain.SelfServiceAppointment) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	s.appointments[appt.ID] = appt
	return appt.ID
}

// SeedScheduledAppointment inserts a staff-scheduled appointment row.
func (s *MemoryStore) SeedScheduledAppointment(appt domain.ScheduledAppointment) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	s.schedule[appt.ID] = appt
	return appt.ID
}

// LinkPatientAccount records the patient-chart to portal-account link.
func (s *MemoryStore) LinkPatientAccount(patientID string, accountID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patientLinks[patientID] = accountID
}
