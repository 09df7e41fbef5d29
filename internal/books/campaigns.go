package books

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/campaigns"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/google/uuid"
)

// ContractResult is what parsing a contract added to a campaign.
type ContractResult struct {
	Campaign     string               `json:"campaign"`
	Deliverables []domain.Deliverable `json:"deliverables"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// ListCampaigns returns every visible campaign with its billing rollup.
func (s *Service) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cached(s, "campaigns", func() ([]domain.Campaign, error) {
		txs, meta, err := s.loadCampaigns(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListCampaigns: %w", err)
		}
		return campaigns.Rollup(campaigns.Discover(txs, meta), txs, meta, s.rates), nil
	})
}

// CreateCampaign registers an empty campaign.
func (s *Service) CreateCampaign(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("CreateCampaign: %w: %w", ErrInvalidInput, campaigns.ErrEmptyName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, meta, err := s.loadCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("CreateCampaign: %w", err)
	}
	if campaigns.Exists(txs, meta, name) {
		return fmt.Errorf("CreateCampaign: %w: %w", ErrInvalidInput, campaigns.ErrNameTaken)
	}
	meta[name] = campaigns.Normalize(domain.CampaignMeta{})
	if err := s.campaigns.Save(ctx, meta); err != nil {
		return fmt.Errorf("CreateCampaign: %w", err)
	}
	return nil
}

// MergeCampaigns folds the named campaigns into the longest name and returns it.
func (s *Service) MergeCampaigns(ctx context.Context, names []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, meta, err := s.loadCampaigns(ctx)
	if err != nil {
		return "", fmt.Errorf("MergeCampaigns: %w", err)
	}
	target, err := campaigns.Merge(meta, names)
	if err != nil {
		return "", fmt.Errorf("MergeCampaigns: %w: %w", ErrInvalidInput, err)
	}
	if err := s.campaigns.Save(ctx, meta); err != nil {
		return "", fmt.Errorf("MergeCampaigns: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Strs("campaigns", names).
		Str("target", target).
		Msg("Campaigns merged")
	return target, nil
}

// RenameCampaign re-keys the campaign and rewrites the ledger rows filed
// under the old name exactly. It returns how many rows were rewritten.
func (s *Service) RenameCampaign(ctx context.Context, oldName, newName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, meta, err := s.loadCampaigns(ctx)
	if err != nil {
		return 0, fmt.Errorf("RenameCampaign: %w", err)
	}
	n, err := campaigns.Rename(txs, meta, oldName, newName)
	switch {
	case errors.Is(err, campaigns.ErrUnknownCampaign):
		return 0, notFound("RenameCampaign", "campaign", oldName)
	case err != nil:
		return 0, fmt.Errorf("RenameCampaign: %w: %w", ErrInvalidInput, err)
	}
	if n > 0 {
		if err := s.transactions.Save(ctx, txs); err != nil {
			return 0, fmt.Errorf("RenameCampaign: %w", err)
		}
	}
	if err := s.campaigns.Save(ctx, meta); err != nil {
		return 0, fmt.Errorf("RenameCampaign: %w", err)
	}
	return n, nil
}

// DeleteCampaign removes a campaign's metadata. Ledger rows are untouched.
func (s *Service) DeleteCampaign(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadMeta(ctx)
	if err != nil {
		return fmt.Errorf("DeleteCampaign: %w", err)
	}
	if _, ok := meta[name]; !ok {
		return notFound("DeleteCampaign", "campaign", name)
	}
	delete(meta, name)
	if err := s.campaigns.Save(ctx, meta); err != nil {
		return fmt.Errorf("DeleteCampaign: %w", err)
	}
	return nil
}

// AddDeliverable appends a deliverable to a campaign.
func (s *Service) AddDeliverable(ctx context.Context, campaign string, d domain.Deliverable) (*domain.Deliverable, error) {
	if err := normalizeDeliverable(&d); err != nil {
		return nil, fmt.Errorf("AddDeliverable: %w", err)
	}
	d.ID = uuid.NewString()

	var out domain.Deliverable
	err := s.withCampaign(ctx, "AddDeliverable", campaign, func(m *domain.CampaignMeta) error {
		m.Deliverables = append(m.Deliverables, d)
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDeliverable replaces a deliverable, keeping its id.
func (s *Service) UpdateDeliverable(ctx context.Context, campaign, id string, d domain.Deliverable) (*domain.Deliverable, error) {
	if err := normalizeDeliverable(&d); err != nil {
		return nil, fmt.Errorf("UpdateDeliverable: %w", err)
	}
	d.ID = id

	var out domain.Deliverable
	err := s.withDeliverable(ctx, "UpdateDeliverable", campaign, id, func(m *domain.CampaignMeta, i int) {
		m.Deliverables[i] = d
		out = d
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleDeliverable flips the completed flag of a deliverable.
func (s *Service) ToggleDeliverable(ctx context.Context, campaign, id string) (*domain.Deliverable, error) {
	var out domain.Deliverable
	err := s.withDeliverable(ctx, "ToggleDeliverable", campaign, id, func(m *domain.CampaignMeta, i int) {
		m.Deliverables[i].IsCompleted = !m.Deliverables[i].IsCompleted
		if m.Deliverables[i].IsCompleted && m.Deliverables[i].PostedDate == "" {
			m.Deliverables[i].PostedDate = s.today()
		}
		out = m.Deliverables[i]
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDeliverable removes a deliverable from a campaign.
func (s *Service) DeleteDeliverable(ctx context.Context, campaign, id string) error {
	return s.withDeliverable(ctx, "DeleteDeliverable", campaign, id, func(m *domain.CampaignMeta, i int) {
		m.Deliverables = append(m.Deliverables[:i], m.Deliverables[i+1:]...)
	})
}

// AttachFile stores an uploaded file and records it on the campaign.
func (s *Service) AttachFile(ctx context.Context, campaign, name, contentType string, r io.Reader) (*domain.CampaignFile, error) {
	if s.docs == nil {
		return nil, fmt.Errorf("AttachFile: documents: %w", ErrUnavailable)
	}

	// The upload happens outside the lock, so check the campaign first.
	s.mu.Lock()
	txs, meta, err := s.loadCampaigns(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("AttachFile: %w", err)
	}
	if !campaigns.Exists(txs, meta, campaign) {
		return nil, notFound("AttachFile", "campaign", campaign)
	}

	doc, err := s.docs.Save(ctx, name, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("AttachFile: %w", err)
	}
	file := domain.CampaignFile{
		ID:          uuid.NewString(),
		Name:        doc.Name,
		URI:         doc.URI,
		ContentType: doc.ContentType,
		Size:        doc.Size,
		UploadedAt:  doc.UploadedAt,
	}

	err = s.withCampaign(ctx, "AttachFile", campaign, func(m *domain.CampaignMeta) error {
		m.Files = append(m.Files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ParseContract reads deliverables out of a contract and appends them to
// the campaign. A model failure yields no deliverables and a warning.
func (s *Service) ParseContract(ctx context.Context, campaign string, doc llm.Attachment) (*ContractResult, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("ParseContract: parser: %w", ErrUnavailable)
	}

	out := &ContractResult{Campaign: campaign, Deliverables: []domain.Deliverable{}}
	res, err := s.parser.ParseContract(ctx, doc)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("campaign", campaign).Msg("Contract parsing failed")
		out.Warnings = []string{fmt.Sprintf("could not read contract: %v", err)}
		return out, nil
	}
	out.Warnings = res.Warnings

	drafts := make([]domain.Deliverable, 0, len(res.Deliverables))
	for _, d := range res.Deliverables {
		if err := normalizeDeliverable(&d); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("deliverable %q dropped: %v", d.Name, err))
			continue
		}
		d.ID = uuid.NewString()
		drafts = append(drafts, d)
	}
	if len(drafts) == 0 {
		return out, nil
	}

	err = s.withCampaign(ctx, "ParseContract", campaign, func(m *domain.CampaignMeta) error {
		m.Deliverables = append(m.Deliverables, drafts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Deliverables = drafts
	return out, nil
}

func (s *Service) loadMeta(ctx context.Context) (domain.CampaignMetadata, error) {
	meta, err := s.campaigns.Load(ctx)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = domain.CampaignMetadata{}
	}
	return meta, nil
}

func (s *Service) loadCampaigns(ctx context.Context) ([]domain.Transaction, domain.CampaignMetadata, error) {
	txs, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, nil, err
	}
	return txs, meta, nil
}

// withCampaign runs fn on the campaign's metadata, creating the entry for
// a campaign that so far only exists in the ledger, and saves the result.
func (s *Service) withCampaign(ctx context.Context, op, name string, fn func(m *domain.CampaignMeta) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, meta, err := s.loadCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !campaigns.Exists(txs, meta, name) {
		return notFound(op, "campaign", name)
	}
	m := campaigns.Normalize(meta[name])
	if err := fn(&m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	meta[name] = m
	if err := s.campaigns.Save(ctx, meta); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) withDeliverable(ctx context.Context, op, campaign, id string, fn func(m *domain.CampaignMeta, i int)) error {
	return s.withCampaign(ctx, op, campaign, func(m *domain.CampaignMeta) error {
		for i := range m.Deliverables {
			if m.Deliverables[i].ID == id {
				fn(m, i)
				return nil
			}
		}
		return fmt.Errorf("deliverable %q: %w", id, ErrNotFound)
	})
}

func normalizeDeliverable(d *domain.Deliverable) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return invalid("normalizeDeliverable", "deliverable name is required")
	}
	if d.Rate < 0 {
		return invalid("normalizeDeliverable", "rate must not be negative")
	}
	if d.Quantity <= 0 {
		d.Quantity = 1
	}
	d.Currency = domain.ParseCurrency(string(d.Currency))
	d.Platform = strings.TrimSpace(d.Platform)
	return nil
}
