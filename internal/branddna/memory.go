package branddna

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used in tests and when Firestore is not
// configured.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: map[string]*Profile{}, now: time.Now}
}

func (m *MemoryStore) Get(ctx context.Context, uid, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(uid, id)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, uid string) ([]*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Profile
	for _, p := range m.profiles {
		if p.UID == uid {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Create(ctx context.Context, uid string, p Profile) (*Profile, error) {
	if err := validateNew(p); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, existing := range m.profiles {
		if existing.UID == uid {
			count++
		}
	}
	if count >= MaxProfiles {
		return nil, ErrLimitReached
	}

	if p.IsActive {
		m.deactivateAll(uid)
	}
	p.ID = uuid.NewString()
	p.UID = uid
	p.CreatedAt = m.now()
	m.profiles[p.ID] = &p

	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, uid, id string, u ProfileUpdate) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(uid, id)
	if err != nil {
		return nil, err
	}
	u.apply(p)
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, uid, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(uid, id); err != nil {
		return err
	}
	delete(m.profiles, id)
	return nil
}

func (m *MemoryStore) SetActive(ctx context.Context, uid, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(uid, id)
	if err != nil {
		return nil, err
	}
	m.deactivateAll(uid)
	p.IsActive = true
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) owned(uid, id string) (*Profile, error) {
	p, ok := m.profiles[id]
	if !ok || p.UID != uid {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) deactivateAll(uid string) {
	for _, p := range m.profiles {
		if p.UID == uid {
			p.IsActive = false
		}
	}
}
