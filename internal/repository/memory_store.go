package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/model"
)

// MemoryStore keeps plans, groups and submissions in process memory.
// Records are copied on the way in and out so callers never share state
// with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	plans       []*model.Plan
	groups      []*model.Group
	submissions []*model.Submission
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

func (m *MemoryStore) Plans() PlanRepositoryInterface { return memoryPlans{m} }

func (m *MemoryStore) Groups() GroupRepositoryInterface { return memoryGroups{m} }

func (m *MemoryStore) Submissions() SubmissionRepositoryInterface { return memorySubmissions{m} }

func clonePlan(p *model.Plan) *model.Plan {
	c := *p
	c.ChecklistItems = append(model.ChecklistItems{}, p.ChecklistItems...)
	return &c
}

func cloneGroup(g *model.Group) *model.Group {
	c := *g
	c.AllowedDomains = append([]string{}, g.AllowedDomains...)
	if g.LastUsedAt != nil {
		t := *g.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}

func cloneSubmission(s *model.Submission) *model.Submission {
	c := *s
	if s.CustomerPhone != nil {
		v := *s.CustomerPhone
		c.CustomerPhone = &v
	}
	if s.UserAgent != nil {
		v := *s.UserAgent
		c.UserAgent = &v
	}
	return &c
}

/* plans */

type memoryPlans struct{ m *MemoryStore }

func (r memoryPlans) List(ctx context.Context) ([]*model.Plan, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]*model.Plan, 0, len(r.m.plans))
	for _, p := range r.m.plans {
		out = append(out, clonePlan(p))
	}
	return out, nil
}

func (r memoryPlans) find(match func(*model.Plan) bool) *model.Plan {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, p := range r.m.plans {
		if match(p) {
			return clonePlan(p)
		}
	}
	return nil
}

func (r memoryPlans) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	return r.find(func(p *model.Plan) bool { return p.ID == id }), nil
}

func (r memoryPlans) GetBySlug(ctx context.Context, slug string) (*model.Plan, error) {
	return r.find(func(p *model.Plan) bool { return p.Slug == slug }), nil
}

func (r memoryPlans) slugTaken(slug, exceptID string) bool {
	for _, p := range r.m.plans {
		if p.Slug == slug && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (r memoryPlans) Create(ctx context.Context, p *model.Plan) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.slugTaken(p.Slug, "") {
		return appErrors.ErrDuplicateSlug
	}
	now := r.m.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ChecklistItems == nil {
		p.ChecklistItems = model.ChecklistItems{}
	}
	r.m.plans = append(r.m.plans, clonePlan(p))
	return nil
}

func (r memoryPlans) Update(ctx context.Context, id string, upd model.PlanUpdate) (*model.Plan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, p := range r.m.plans {
		if p.ID != id {
			continue
		}
		next := clonePlan(p)
		upd.Apply(next)
		if r.slugTaken(next.Slug, id) {
			return nil, appErrors.ErrDuplicateSlug
		}
		next.UpdatedAt = r.m.now()
		r.m.plans[i] = next
		return clonePlan(next), nil
	}
	return nil, nil
}

func (r memoryPlans) Delete(ctx context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, p := range r.m.plans {
		if p.ID == id {
			r.m.plans = append(r.m.plans[:i], r.m.plans[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

/* groups */

type memoryGroups struct{ m *MemoryStore }

func (r memoryGroups) List(ctx context.Context) ([]*model.Group, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]*model.Group, 0, len(r.m.groups))
	for _, g := range r.m.groups {
		out = append(out, cloneGroup(g))
	}
	return out, nil
}

func (r memoryGroups) find(match func(*model.Group) bool) *model.Group {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, g := range r.m.groups {
		if match(g) {
			return cloneGroup(g)
		}
	}
	return nil
}

func (r memoryGroups) GetByID(ctx context.Context, id string) (*model.Group, error) {
	return r.find(func(g *model.Group) bool { return g.ID == id }), nil
}

func (r memoryGroups) GetByToken(ctx context.Context, token string) (*model.Group, error) {
	return r.find(func(g *model.Group) bool { return g.Token == token }), nil
}

func (r memoryGroups) tokenTaken(token, exceptID string) bool {
	for _, g := range r.m.groups {
		if g.Token == token && g.ID != exceptID {
			return true
		}
	}
	return false
}

func (r memoryGroups) Create(ctx context.Context, g *model.Group) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.tokenTaken(g.Token, "") {
		return appErrors.ErrDuplicateToken
	}
	now := r.m.now()
	g.ID = uuid.NewString()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.AllowedDomains == nil {
		g.AllowedDomains = []string{}
	}
	r.m.groups = append(r.m.groups, cloneGroup(g))
	return nil
}

func (r memoryGroups) mutate(id string, fn func(g *model.Group) error) (*model.Group, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, g := range r.m.groups {
		if g.ID != id {
			continue
		}
		next := cloneGroup(g)
		if err := fn(next); err != nil {
			return nil, err
		}
		r.m.groups[i] = next
		return cloneGroup(next), nil
	}
	return nil, nil
}

func (r memoryGroups) Update(ctx context.Context, id string, upd model.GroupUpdate) (*model.Group, error) {
	return r.mutate(id, func(g *model.Group) error {
		upd.Apply(g)
		g.UpdatedAt = r.m.now()
		return nil
	})
}

func (r memoryGroups) SetToken(ctx context.Context, id, token string) (*model.Group, error) {
	return r.mutate(id, func(g *model.Group) error {
		if r.tokenTaken(token, id) {
			return appErrors.ErrDuplicateToken
		}
		g.Token = token
		g.LastUsedAt = nil
		g.UpdatedAt = r.m.now()
		return nil
	})
}

func (r memoryGroups) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.mutate(id, func(g *model.Group) error {
		t := at.UTC()
		g.LastUsedAt = &t
		return nil
	})
	return err
}

func (r memoryGroups) Delete(ctx context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, g := range r.m.groups {
		if g.ID == id {
			r.m.groups = append(r.m.groups[:i], r.m.groups[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

/* submissions */

type memorySubmissions struct{ m *MemoryStore }

func (r memorySubmissions) Create(ctx context.Context, s *model.Submission) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s.ID = uuid.NewString()
	s.CreatedAt = r.m.now()
	r.m.submissions = append(r.m.submissions, cloneSubmission(s))
	return nil
}

func (r memorySubmissions) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, s := range r.m.submissions {
		if s.ID == id {
			return cloneSubmission(s), nil
		}
	}
	return nil, nil
}

// List returns newest first, matching the Postgres ordering.
func (r memorySubmissions) List(ctx context.Context, offset, limit int, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	r.m.mu.RLock()
	var filtered []*model.Submission
	for _, s := range r.m.submissions {
		if filter.PlanID != "" && s.PlanID != filter.PlanID {
			continue
		}
		if filter.GroupID != "" && s.GroupID != filter.GroupID {
			continue
		}
		filtered = append(filtered, cloneSubmission(s))
	}
	r.m.mu.RUnlock()

	// insertion order breaks ties between equal timestamps
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := len(filtered)
	if offset < 0 || limit < 0 || offset >= total {
		return []*model.Submission{}, total, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	return filtered[offset:end], total, nil
}

func (r memorySubmissions) Count(ctx context.Context) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return len(r.m.submissions), nil
}
