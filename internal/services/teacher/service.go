package teacher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"school-api/config"
	"school-api/internal/core/security"
	"school-api/internal/database"
	"school-api/internal/database/model"
	"school-api/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	MaxTopK      = 50

	indexTimeout = 30 * time.Second
)

var (
	ErrForbidden      = errors.New("admin role required")
	ErrNotFound       = errors.New("teacher profile not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrProfileExists  = errors.New("user already has a teacher profile")
	ErrEmailTaken     = errors.New("email already registered")
	ErrInvalidPage    = errors.New("skip must be >= 0 and limit between 1 and 100")
	ErrEmptyQuery     = errors.New("query is empty")
	ErrSearchDisabled = errors.New("teacher search is disabled")
	ErrBlankName      = errors.New("name must not be blank")
)

type Repository interface {
	CreateProfile(ctx context.Context, profile *model.TeacherProfile, newUser *model.User) error
	GetByID(ctx context.Context, id int64) (*model.TeacherProfile, error)
	GetByUserID(ctx context.Context, userID int64) (*model.TeacherProfile, error)
	ListActive(ctx context.Context, skip, limit int) ([]model.TeacherProfile, int64, error)
	ListAllActive(ctx context.Context) ([]model.TeacherProfile, error)
	ListActiveByIDs(ctx context.Context, ids []int64) ([]model.TeacherProfile, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (*model.TeacherProfile, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Indexer keeps the search index in step with active profiles.
type Indexer interface {
	Index(ctx context.Context, profile model.TeacherProfile) error
	Remove(ctx context.Context, profileID int64) error
	Search(ctx context.Context, query string, topK int) ([]int64, error)
}

type CreateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Bio      string `json:"bio" validate:"max=500"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=255"`
	IsActive *bool  `json:"is_active"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"omitempty,strongpassword"`
	UserID   *int64 `json:"user_id" validate:"omitempty,gt=0"`
}

// UpdateRequest carries the editable fields; nil means unchanged.
type UpdateRequest struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=255"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	ImageURL *string `json:"image_url" validate:"omitempty,max=255"`
}

// Normalize trims the fields that are stored trimmed, so validation sees the stored value.
func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *UpdateRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
}

type Page struct {
	Items []model.TeacherProfile
	Skip  int
	Limit int
	Total int64
}

type Service struct {
	repo       Repository
	hasher     PasswordHasher
	indexer    Indexer
	topK       int
	background func(func())

	syncMu  sync.Mutex
	pending map[int64]model.TeacherProfile
	running map[int64]bool
}

// NewService wires the profile store; indexer may be nil when search is off.
func NewService(repo Repository, hasher PasswordHasher, indexer Indexer, topK int) *Service {
	if topK <= 0 {
		topK = DefaultLimit
	}
	return &Service{
		repo:       repo,
		hasher:     hasher,
		indexer:    indexer,
		topK:       topK,
		background: func(fn func()) { go fn() },
		pending:    make(map[int64]model.TeacherProfile),
		running:    make(map[int64]bool),
	}
}

// Create inserts a profile for an existing user or for a user provisioned on the fly.
func (s *Service) Create(ctx context.Context, actor *model.User, req CreateRequest) (*model.TeacherProfile, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	req.Normalize()
	if req.Name == "" {
		return nil, ErrBlankName
	}

	profile := &model.TeacherProfile{
		Name:     req.Name,
		Bio:      req.Bio,
		ImageURL: req.ImageURL,
		IsActive: true,
	}
	if req.IsActive != nil {
		profile.IsActive = *req.IsActive
	}

	var newUser *model.User
	if req.UserID != nil {
		profile.UserID = *req.UserID
	} else {
		u, err := s.provisionUser(req.Email, req.Password)
		if err != nil {
			return nil, err
		}
		newUser = u
	}

	if err := s.repo.CreateProfile(ctx, profile, newUser); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, database.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, database.ErrProfileExists):
			return nil, ErrProfileExists
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"module":     config.ModuleTeacher,
		"profile_id": profile.ID,
		"user_id":    profile.UserID,
		"actor_id":   actor.ID,
	}).Info("teacher profile created")

	s.sync(*profile)
	return profile, nil
}

func (s *Service) provisionUser(email, password string) (*model.User, error) {
	if email == "" {
		email = fmt.Sprintf("auto-teacher-%s@example.com", strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	if password == "" {
		password = security.RandomPassword()
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleTeacher,
		IsActive:     true,
	}, nil
}

// List returns one page of active profiles.
func (s *Service) List(ctx context.Context, skip, limit int) (*Page, error) {
	if skip < 0 || limit < 1 || limit > MaxLimit {
		return nil, ErrInvalidPage
	}
	items, total, err := s.repo.ListActive(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return &Page{Items: items, Skip: skip, Limit: limit, Total: total}, nil
}

func (s *Service) ListAll(ctx context.Context) ([]model.TeacherProfile, error) {
	items, err := s.repo.ListAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.TeacherProfile, error) {
	return s.find(s.repo.GetByID(ctx, id))
}

func (s *Service) GetByUser(ctx context.Context, userID int64) (*model.TeacherProfile, error) {
	return s.find(s.repo.GetByUserID(ctx, userID))
}

func (s *Service) find(p *model.TeacherProfile, err error) (*model.TeacherProfile, error) {
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*model.TeacherProfile, error) {
	req.Normalize()
	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, ErrBlankName
		}
		updates["name"] = *req.Name
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	return s.update(ctx, id, updates)
}

// Deactivate hides the profile from listings and search.
func (s *Service) Deactivate(ctx context.Context, id int64) (*model.TeacherProfile, error) {
	return s.update(ctx, id, map[string]interface{}{"is_active": false})
}

func (s *Service) Activate(ctx context.Context, id int64) (*model.TeacherProfile, error) {
	return s.update(ctx, id, map[string]interface{}{"is_active": true})
}

// SetImage points the profile at an uploaded image.
func (s *Service) SetImage(ctx context.Context, id int64, url string) (*model.TeacherProfile, error) {
	return s.update(ctx, id, map[string]interface{}{"image_url": url})
}

func (s *Service) update(ctx context.Context, id int64, updates map[string]interface{}) (*model.TeacherProfile, error) {
	p, err := s.find(s.repo.Update(ctx, id, updates))
	if err != nil {
		return nil, err
	}
	s.sync(*p)
	return p, nil
}

// Search embeds query and returns matching active profiles, best match first.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]model.TeacherProfile, error) {
	if s.indexer == nil {
		return nil, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.topK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	ids, err := s.indexer.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	found, err := s.repo.ListActiveByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	byID := make(map[int64]model.TeacherProfile, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]model.TeacherProfile, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Reindex indexes every active profile and returns how many succeeded.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.indexer == nil {
		return 0, ErrSearchDisabled
	}
	profiles, err := s.repo.ListAllActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	var (
		indexed int
		errs    []error
	)
	for _, p := range profiles {
		if err := s.indexer.Index(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("profile %d: %w", p.ID, err))
			continue
		}
		indexed++
	}
	return indexed, errors.Join(errs...)
}

// sync queues p for the search index without blocking the caller.
// Writes for one profile run one at a time and only the newest queued state is applied.
func (s *Service) sync(p model.TeacherProfile) {
	if s.indexer == nil {
		return
	}
	s.syncMu.Lock()
	s.pending[p.ID] = p
	if s.running[p.ID] {
		s.syncMu.Unlock()
		return
	}
	s.running[p.ID] = true
	s.syncMu.Unlock()

	s.background(func() { s.drain(p.ID) })
}

func (s *Service) drain(id int64) {
	for {
		s.syncMu.Lock()
		p, ok := s.pending[id]
		if !ok {
			delete(s.running, id)
			s.syncMu.Unlock()
			return
		}
		delete(s.pending, id)
		s.syncMu.Unlock()

		s.apply(p)
	}
}

func (s *Service) apply(p model.TeacherProfile) {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	var err error
	if p.IsActive {
		err = s.indexer.Index(ctx, p)
	} else {
		err = s.indexer.Remove(ctx, p.ID)
	}
	if err != nil {
		logger.Error(err, "%v: sync search index for profile %d failed", config.ModuleRetriever, p.ID)
	}
}
