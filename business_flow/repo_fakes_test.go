package businessflow

import (
	"context"
	"time"

	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/controlcuentas/admin-api/utils"
)

// In-memory repository fakes. Embedding the interface keeps them short;
// only the methods a flow actually calls are implemented.

type fakeConfigRepo struct {
	cfg         *models.AutomationConfig
	getErr      error
	updateErr   error
	updateCalls int
}

func (f *fakeConfigRepo) Get(ctx context.Context) (*models.AutomationConfig, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.cfg, nil
}

func (f *fakeConfigRepo) Update(ctx context.Context, cfg *models.AutomationConfig) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls++
	cfg.UpdatedAt = utils.UTCNow()
	f.cfg = cfg
	return nil
}

func (f *fakeConfigRepo) EnsureExists(ctx context.Context, defaults models.SettingsMap) (*models.AutomationConfig, error) {
	if f.cfg == nil {
		f.cfg = &models.AutomationConfig{
			Key:      models.AutomationConfigKey,
			Status:   models.AutomationStatusActive,
			Settings: defaults,
		}
	}
	return f.cfg, nil
}

type fakeLogRepo struct {
	repository.AutomationLogRepository
	saved   []*models.AutomationLog
	saveErr error
	recent  []*models.AutomationLog
}

func (f *fakeLogRepo) Save(ctx context.Context, entry *models.AutomationLog) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	entry.ID = uint(len(f.saved) + 1)
	f.saved = append(f.saved, entry)
	return nil
}

func (f *fakeLogRepo) ListRecent(ctx context.Context, limit int) ([]*models.AutomationLog, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeTrackingRepo struct {
	repository.NotificationTrackingRepository
	saved      []*models.NotificationTracking
	saveErr    error
	successful int64
	stats      []repository.TrackingTypeStat
	total      int64
	rows       []*models.NotificationTracking
}

func (f *fakeTrackingRepo) Save(ctx context.Context, row *models.NotificationTracking) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	row.ID = uint(len(f.saved) + 1)
	if row.SentAt.IsZero() {
		row.SentAt = utils.UTCNow()
	}
	f.saved = append(f.saved, row)
	return nil
}

func (f *fakeTrackingRepo) CountSuccessfulSince(ctx context.Context, since time.Time) (int64, error) {
	return f.successful, nil
}

func (f *fakeTrackingRepo) StatsByTypeSince(ctx context.Context, since time.Time) ([]repository.TrackingTypeStat, error) {
	return f.stats, nil
}

func (f *fakeTrackingRepo) Count(ctx context.Context, filter models.NotificationTrackingFilter) (int64, error) {
	return f.total, nil
}

func (f *fakeTrackingRepo) ListSince(ctx context.Context, since time.Time) ([]*models.NotificationTracking, error) {
	return f.rows, nil
}

type fakeAccountRepo struct {
	repository.AccountRepository
	accounts          map[uint]*models.Account
	byIDErr           error
	schedulable       []*models.Account
	schedulableCalled bool
}

func (f *fakeAccountRepo) ByID(ctx context.Context, id uint) (*models.Account, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.accounts[id], nil
}

func (f *fakeAccountRepo) ListSchedulable(ctx context.Context, dueBefore time.Time) ([]*models.Account, error) {
	f.schedulableCalled = true
	return f.schedulable, nil
}

type fakeUserRepo struct {
	repository.UserRepository
	users      map[uint]*models.User
	roles      map[uint][]string
	nextID     uint
	updateErr  error
	lastLogins map[uint]time.Time
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:      map[uint]*models.User{},
		roles:      map[uint][]string{},
		lastLogins: map[uint]time.Time{},
	}
}

func (f *fakeUserRepo) add(user *models.User, roles ...string) *models.User {
	if user.ID == 0 {
		f.nextID++
		user.ID = f.nextID
	} else if user.ID > f.nextID {
		f.nextID = user.ID
	}
	f.users[user.ID] = user
	f.roles[user.ID] = roles
	return user
}

func (f *fakeUserRepo) ByID(ctx context.Context, id uint) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	out := make([]*models.User, 0, len(f.users))
	for id := f.nextID; id > 0; id-- {
		if user, ok := f.users[id]; ok {
			out = append(out, user)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserRepo) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) Save(ctx context.Context, user *models.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uint) error {
	delete(f.users, id)
	delete(f.roles, id)
	return nil
}

func (f *fakeUserRepo) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	for _, r := range f.roles[userID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) GrantRole(ctx context.Context, userID uint, role string) error {
	f.roles[userID] = append(f.roles[userID], role)
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	f.lastLogins[userID] = at
	return nil
}
