package books

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/google/uuid"
)

// ListResources returns the resource library.
func (s *Service) ListResources(ctx context.Context) ([]domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.resources.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListResources: %w", err)
	}
	if res == nil {
		res = []domain.Resource{}
	}
	return res, nil
}

// AddResource saves a link to the library.
func (s *Service) AddResource(ctx context.Context, r domain.Resource) (*domain.Resource, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return nil, invalid("AddResource", "url is required")
	}
	if r.Title == "" {
		r.Title = r.URL
	}
	r.ID = uuid.NewString()
	r.AddedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.resources.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("AddResource: %w", err)
	}
	res = append(res, r)
	if err := s.resources.Save(ctx, res); err != nil {
		return nil, fmt.Errorf("AddResource: %w", err)
	}
	return &r, nil
}

// DeleteResource removes a link from the library.
func (s *Service) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.resources.Load(ctx)
	if err != nil {
		return fmt.Errorf("DeleteResource: %w", err)
	}
	for i := range res {
		if res[i].ID == id {
			res = append(res[:i], res[i+1:]...)
			if err := s.resources.Save(ctx, res); err != nil {
				return fmt.Errorf("DeleteResource: %w", err)
			}
			return nil
		}
	}
	return notFound("DeleteResource", "resource", id)
}

// GetEntities returns every company profile and the active one.
func (s *Service) GetEntities(ctx context.Context) (*domain.EntityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.entities.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetEntities: %w", err)
	}
	if st.Entities == nil {
		st.Entities = []domain.Entity{}
	}
	return &st, nil
}

// AddEntity registers a company profile. The first profile becomes active.
func (s *Service) AddEntity(ctx context.Context, e domain.Entity) (*domain.Entity, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, invalid("AddEntity", "name is required")
	}
	e.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.entities.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("AddEntity: %w", err)
	}
	st.Entities = append(st.Entities, e)
	if st.ActiveID == "" {
		st.ActiveID = e.ID
	}
	if err := s.entities.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("AddEntity: %w", err)
	}
	return &e, nil
}

// DeleteEntity removes a profile. Deleting the active one clears the selection.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.entities.Load(ctx)
	if err != nil {
		return fmt.Errorf("DeleteEntity: %w", err)
	}
	for i := range st.Entities {
		if st.Entities[i].ID != id {
			continue
		}
		st.Entities = append(st.Entities[:i], st.Entities[i+1:]...)
		if st.ActiveID == id {
			st.ActiveID = ""
		}
		if err := s.entities.Save(ctx, st); err != nil {
			return fmt.Errorf("DeleteEntity: %w", err)
		}
		return nil
	}
	return notFound("DeleteEntity", "entity", id)
}

// SetActiveEntity selects the profile shown on documents. Data is not partitioned by entity.
func (s *Service) SetActiveEntity(ctx context.Context, id string) (*domain.EntityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.entities.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("SetActiveEntity: %w", err)
	}
	found := false
	for _, e := range st.Entities {
		if e.ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil, notFound("SetActiveEntity", "entity", id)
	}
	st.ActiveID = id
	if err := s.entities.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("SetActiveEntity: %w", err)
	}
	return &st, nil
}

// GetPreferences returns the UI preferences.
func (s *Service) GetPreferences(ctx context.Context) (*domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.preferences.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPreferences: %w", err)
	}
	return &p, nil
}

// SetPreferences replaces the UI preferences.
func (s *Service) SetPreferences(ctx context.Context, p domain.Preferences) (*domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.preferences.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("SetPreferences: %w", err)
	}
	return &p, nil
}
