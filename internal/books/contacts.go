package books

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/google/uuid"
)

// PipelineStage summarises the leads at one status.
type PipelineStage struct {
	Status         domain.ContactStatus `json:"status"`
	Count          int                  `json:"count"`
	PotentialValue float64              `json:"potentialValue"`
}

// ListContacts returns every CRM lead.
func (s *Service) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.contacts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListContacts: %w", err)
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

// CreateContact adds a lead.
func (s *Service) CreateContact(ctx context.Context, c domain.Contact) (*domain.Contact, error) {
	if err := normalizeContact(&c); err != nil {
		return nil, fmt.Errorf("CreateContact: %w", err)
	}
	now := s.now()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Source == "" {
		c.Source = domain.SourceManual
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.contacts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("CreateContact: %w", err)
	}
	contacts = append(contacts, c)
	if err := s.contacts.Save(ctx, contacts); err != nil {
		return nil, fmt.Errorf("CreateContact: %w", err)
	}
	return &c, nil
}

// UpdateContact replaces a lead, keeping its id and creation time.
func (s *Service) UpdateContact(ctx context.Context, id string, c domain.Contact) (*domain.Contact, error) {
	if err := normalizeContact(&c); err != nil {
		return nil, fmt.Errorf("UpdateContact: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.contacts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpdateContact: %w", err)
	}
	for i := range contacts {
		if contacts[i].ID != id {
			continue
		}
		c.ID = id
		c.CreatedAt = contacts[i].CreatedAt
		if c.Source == "" {
			c.Source = contacts[i].Source
		}
		c.UpdatedAt = s.now()
		contacts[i] = c
		if err := s.contacts.Save(ctx, contacts); err != nil {
			return nil, fmt.Errorf("UpdateContact: %w", err)
		}
		return &contacts[i], nil
	}
	return nil, notFound("UpdateContact", "contact", id)
}

// DeleteContact removes a lead.
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.contacts.Load(ctx)
	if err != nil {
		return fmt.Errorf("DeleteContact: %w", err)
	}
	for i := range contacts {
		if contacts[i].ID == id {
			contacts = append(contacts[:i], contacts[i+1:]...)
			if err := s.contacts.Save(ctx, contacts); err != nil {
				return fmt.Errorf("DeleteContact: %w", err)
			}
			return nil
		}
	}
	return notFound("DeleteContact", "contact", id)
}

// ContactPipeline counts leads and sums their AED potential value per stage.
// Every stage is listed, in pipeline order.
func (s *Service) ContactPipeline(ctx context.Context) ([]PipelineStage, error) {
	contacts, err := s.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("ContactPipeline: %w", err)
	}

	stages := make([]PipelineStage, len(domain.ContactStatuses))
	index := make(map[domain.ContactStatus]int, len(stages))
	for i, st := range domain.ContactStatuses {
		stages[i].Status = st
		index[st] = i
	}
	for _, c := range contacts {
		i, ok := index[c.Status]
		if !ok {
			i = index[domain.ContactNew]
		}
		stages[i].Count++
		stages[i].PotentialValue += s.rates.ToAED(c.PotentialValue, c.Currency).InexactFloat64()
	}
	for i := range stages {
		stages[i].PotentialValue = roundMoney(stages[i].PotentialValue)
	}
	return stages, nil
}

// ParseContact reads a contact draft out of a company document. The draft
// is not saved. A model failure yields an empty draft and a warning.
func (s *Service) ParseContact(ctx context.Context, doc llm.Attachment) (*llm.ContactResult, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("ParseContact: parser: %w", ErrUnavailable)
	}
	res, err := s.parser.ParseContact(ctx, doc)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Contact parsing failed")
		return &llm.ContactResult{
			Contact:  domain.Contact{Status: domain.ContactNew, Currency: domain.CurrencyAED},
			Warnings: []string{fmt.Sprintf("could not read document: %v", err)},
		}, nil
	}
	return res, nil
}

func normalizeContact(c *domain.Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Company = strings.TrimSpace(c.Company)
	if c.Name == "" {
		c.Name = c.Company
	}
	if c.Name == "" {
		return invalid("normalizeContact", "name or company is required")
	}
	if c.PotentialValue < 0 {
		return invalid("normalizeContact", "potential value must not be negative")
	}
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Status = domain.ParseContactStatus(string(c.Status))
	c.Currency = domain.ParseCurrency(string(c.Currency))
	return nil
}
