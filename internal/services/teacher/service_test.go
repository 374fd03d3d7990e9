package teacher

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"

	"school-api/internal/database"
	"school-api/internal/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	users    map[int64]*model.User
	emails   map[string]bool
	profiles map[int64]*model.TeacherProfile
	nextUser int64
	nextProf int64
	err      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    map[int64]*model.User{},
		emails:   map[string]bool{},
		profiles: map[int64]*model.TeacherProfile{},
	}
}

func (f *fakeRepo) addUser(email string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUser++
	u := &model.User{ID: f.nextUser, Email: email, Role: model.RoleTeacher, IsActive: true}
	f.users[u.ID] = u
	f.emails[email] = true
	return u
}

func (f *fakeRepo) CreateProfile(_ context.Context, p *model.TeacherProfile, newUser *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if newUser != nil {
		if f.emails[newUser.Email] {
			return database.ErrDuplicateEmail
		}
		f.nextUser++
		newUser.ID = f.nextUser
		f.users[newUser.ID] = newUser
		f.emails[newUser.Email] = true
		p.UserID = newUser.ID
	} else if _, ok := f.users[p.UserID]; !ok {
		return database.ErrNotFound
	}
	for _, existing := range f.profiles {
		if existing.UserID == p.UserID {
			return database.ErrProfileExists
		}
	}
	f.nextProf++
	p.ID = f.nextProf
	stored := *p
	f.profiles[p.ID] = &stored
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*model.TeacherProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakeRepo) GetByUserID(_ context.Context, userID int64) (*model.TeacherProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.UserID == userID {
			out := *p
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeRepo) activeSorted() []model.TeacherProfile {
	var out []model.TeacherProfile
	for _, p := range f.profiles {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRepo) ListActive(_ context.Context, skip, limit int) ([]model.TeacherProfile, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	all := f.activeSorted()
	total := int64(len(all))
	if skip > len(all) {
		skip = len(all)
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], total, nil
}

func (f *fakeRepo) ListAllActive(_ context.Context) ([]model.TeacherProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeSorted(), nil
}

func (f *fakeRepo) ListActiveByIDs(_ context.Context, ids []int64) ([]model.TeacherProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TeacherProfile
	for _, p := range f.activeSorted() {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, updates map[string]interface{}) (*model.TeacherProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			p.Name = v.(string)
		case "bio":
			p.Bio = v.(string)
		case "image_url":
			p.ImageURL = v.(string)
		case "is_active":
			p.IsActive = v.(bool)
		}
	}
	out := *p
	return &out, nil
}

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[int64]bool
	removed []int64
	hits    []int64
	failOn  int64
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{indexed: map[int64]bool{}}
}

func (f *fakeIndexer) Index(_ context.Context, p model.TeacherProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == f.failOn {
		return errors.New("embedding unavailable")
	}
	f.indexed[p.ID] = true
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndexer) Search(_ context.Context, _ string, topK int) ([]int64, error) {
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func newTestService(indexer Indexer) (*Service, *fakeRepo) {
	repo := newFakeRepo()
	svc := NewService(repo, plainHasher{}, indexer, 5)
	svc.background = func(fn func()) { fn() }
	return svc, repo
}

var admin = &model.User{ID: 99, Email: "root@example.com", Role: model.RoleAdmin, IsActive: true}

func TestCreate_AutoProvisionsUser(t *testing.T) {
	idx := newFakeIndexer()
	svc, repo := newTestService(idx)

	p, err := svc.Create(context.Background(), admin, CreateRequest{Name: " Ms. Lan ", Bio: "IELTS"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Ms. Lan", p.Name)
	assert.True(t, p.IsActive)

	u := repo.users[p.UserID]
	require.NotNil(t, u)
	assert.Regexp(t, regexp.MustCompile(`^auto-teacher-[0-9a-f]{32}@example\.com$`), u.Email)
	assert.Equal(t, model.RoleTeacher, u.Role)
	assert.Regexp(t, regexp.MustCompile(`^hashed:[0-9a-f]{32}$`), u.PasswordHash)
	assert.True(t, idx.indexed[p.ID])
}

func TestCreate_WithCredentials(t *testing.T) {
	svc, repo := newTestService(nil)

	inactive := false
	p, err := svc.Create(context.Background(), admin, CreateRequest{
		Name:     "Mr. Minh",
		Email:    "Minh@School.edu",
		Password: "Secret123",
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.Equal(t, "minh@school.edu", repo.users[p.UserID].Email)
	assert.Equal(t, "hashed:Secret123", repo.users[p.UserID].PasswordHash)
}

func TestCreate_Errors(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()
	existing := repo.addUser("taken@example.com")

	_, err := svc.Create(ctx, &model.User{ID: 1, Role: model.RoleTeacher}, CreateRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, nil, CreateRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	missing := int64(404)
	_, err = svc.Create(ctx, admin, CreateRequest{Name: "x", UserID: &missing})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Create(ctx, admin, CreateRequest{Name: "x", Email: "taken@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Create(ctx, admin, CreateRequest{Name: "first", UserID: &existing.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateRequest{Name: "second", UserID: &existing.ID})
	assert.ErrorIs(t, err, ErrProfileExists)

	repo.err = errors.New("deadlock found")
	_, err = svc.Create(ctx, admin, CreateRequest{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock found")
}

func TestList(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, admin, CreateRequest{Name: "t"})
		require.NoError(t, err)
	}
	_, err := svc.Deactivate(ctx, 2)
	require.NoError(t, err)

	page, err := svc.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(1), page.Items[0].ID)
	assert.Equal(t, int64(3), page.Items[1].ID)

	page, err = svc.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	for _, tt := range []struct{ skip, limit int }{{-1, 10}, {0, 0}, {0, MaxLimit + 1}} {
		_, err := svc.List(ctx, tt.skip, tt.limit)
		assert.ErrorIs(t, err, ErrInvalidPage)
	}
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	created, err := svc.Create(ctx, admin, CreateRequest{Name: "t"})
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)

	p, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)

	p, err = svc.GetByUser(ctx, created.UserID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)

	_, err = svc.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetByUser(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndActivation(t *testing.T) {
	idx := newFakeIndexer()
	svc, _ := newTestService(idx)
	ctx := context.Background()
	created, err := svc.Create(ctx, admin, CreateRequest{Name: "old", Bio: "keep"})
	require.NoError(t, err)

	name := "new"
	p, err := svc.Update(ctx, created.ID, UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "new", p.Name)
	assert.Equal(t, "keep", p.Bio)

	p, err = svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.False(t, idx.indexed[created.ID])
	assert.Equal(t, []int64{created.ID}, idx.removed)

	p, err = svc.Activate(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.True(t, idx.indexed[created.ID])

	p, err = svc.SetImage(ctx, created.ID, "/static/images/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "/static/images/abc.png", p.ImageURL)

	_, err = svc.Update(ctx, 404, UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUpdate_BlankName(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, CreateRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrBlankName)
	assert.Empty(t, repo.profiles)
	assert.Empty(t, repo.users)

	created, err := svc.Create(ctx, admin, CreateRequest{Name: "Lan"})
	require.NoError(t, err)

	blank := " \t "
	_, err = svc.Update(ctx, created.ID, UpdateRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrBlankName)
	assert.Equal(t, "Lan", repo.profiles[created.ID].Name)

	padded := "  Ms. Lan "
	p, err := svc.Update(ctx, created.ID, UpdateRequest{Name: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Ms. Lan", p.Name)
}

func TestSync_NewestStateWins(t *testing.T) {
	idx := newFakeIndexer()
	svc, _ := newTestService(idx)
	ctx := context.Background()
	created, err := svc.Create(ctx, admin, CreateRequest{Name: "Lan"})
	require.NoError(t, err)

	var queued []func()
	svc.background = func(fn func()) { queued = append(queued, fn) }

	_, err = svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	queued[0]()
	assert.True(t, idx.indexed[created.ID])
	assert.Empty(t, idx.removed)

	_, err = svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	queued[1]()
	assert.False(t, idx.indexed[created.ID])
	assert.Equal(t, []int64{created.ID}, idx.removed)
}

func TestSearch(t *testing.T) {
	idx := newFakeIndexer()
	svc, _ := newTestService(idx)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, admin, CreateRequest{Name: "t"})
		require.NoError(t, err)
	}
	_, err := svc.Deactivate(ctx, 1)
	require.NoError(t, err)

	idx.hits = []int64{3, 1, 2, 7}
	got, err := svc.Search(ctx, " grammar ", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)

	got, err = svc.Search(ctx, "grammar", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = svc.Search(ctx, "   ", 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	disabled, _ := newTestService(nil)
	_, err = disabled.Search(ctx, "grammar", 0)
	assert.ErrorIs(t, err, ErrSearchDisabled)
}

func TestReindex(t *testing.T) {
	idx := newFakeIndexer()
	svc, _ := newTestService(idx)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, admin, CreateRequest{Name: "t"})
		require.NoError(t, err)
	}
	idx.indexed = map[int64]bool{}
	idx.failOn = 2

	n, err := svc.Reindex(ctx)
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile 2")
	assert.True(t, idx.indexed[1])
	assert.True(t, idx.indexed[3])

	disabled, _ := newTestService(nil)
	_, err = disabled.Reindex(ctx)
	assert.ErrorIs(t, err, ErrSearchDisabled)
}
