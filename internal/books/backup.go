package books

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/dvloznov/agency-ledger/internal/store"
)

// ResetPhrase must be typed to wipe every collection.
const ResetPhrase = "DELETE ALL DATA"

// Backup is the portable export of the books.
type Backup struct {
	Transactions       []domain.Transaction     `json:"transactions"`
	Contacts           []domain.Contact         `json:"contacts"`
	CampaignMetadata   domain.CampaignMetadata  `json:"campaignMetadata"`
	BankTransactions   []domain.BankTransaction `json:"bankTransactions"`
	Resources          []domain.Resource        `json:"resources"`
	ParsedRateCardData domain.RateCard          `json:"parsedRateCardData"`
	ZohoConfig         domain.ZohoConfig        `json:"zohoConfig"`
	Entities           domain.EntityState       `json:"entities"`
	Preferences        domain.Preferences       `json:"preferences"`
	ExportedAt         time.Time                `json:"exportedAt"`
}

// RestoreResult lists the collections a backup replaced.
type RestoreResult struct {
	Restored []string `json:"restored"`
}

// ExportBackup reads every collection into one document.
func (s *Service) ExportBackup(ctx context.Context) (*Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &Backup{ExportedAt: s.now().UTC()}
	var err error
	if b.Transactions, err = s.transactions.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.Contacts, err = s.contacts.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.CampaignMetadata, err = s.loadMeta(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.BankTransactions, err = s.bank.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.Resources, err = s.resources.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.ParsedRateCardData, err = s.rateCard.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.ZohoConfig, err = s.zohoConfig.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.Entities, err = s.entities.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}
	if b.Preferences, err = s.preferences.Load(ctx); err != nil {
		return nil, fmt.Errorf("ExportBackup: %w", err)
	}

	if b.Transactions == nil {
		b.Transactions = []domain.Transaction{}
	}
	if b.Contacts == nil {
		b.Contacts = []domain.Contact{}
	}
	if b.BankTransactions == nil {
		b.BankTransactions = []domain.BankTransaction{}
	}
	if b.Resources == nil {
		b.Resources = []domain.Resource{}
	}
	if b.ParsedRateCardData.Items == nil {
		b.ParsedRateCardData.Items = []domain.RateCardItem{}
	}
	if b.Entities.Entities == nil {
		b.Entities.Entities = []domain.Entity{}
	}
	return b, nil
}

// restorer decodes one backup key and returns the write to perform.
type restorer func(raw json.RawMessage) (func(ctx context.Context) error, error)

func restoreInto[T any](c *store.Collection[T], decode func(raw json.RawMessage) (T, error)) restorer {
	return func(raw json.RawMessage) (func(ctx context.Context) error, error) {
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return c.Save(ctx, v) }, nil
	}
}

func decodeJSON[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// decodeRateCard also accepts a bare array of items.
func decodeRateCard(raw json.RawMessage) (domain.RateCard, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		items, err := decodeJSON[[]domain.RateCardItem](raw)
		return domain.RateCard{Items: items}, err
	}
	return decodeJSON[domain.RateCard](raw)
}

// ImportBackup replaces every collection present in the document and leaves
// the others untouched. The whole document is decoded before anything is
// written, so malformed input changes nothing.
func (s *Service) ImportBackup(ctx context.Context, r io.Reader) (*RestoreResult, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ImportBackup: %w: malformed backup: %v", ErrInvalidInput, err)
	}

	restorers := map[string]restorer{
		"transactions":       restoreInto(s.transactions, decodeJSON[[]domain.Transaction]),
		"contacts":           restoreInto(s.contacts, decodeJSON[[]domain.Contact]),
		"campaignMetadata":   restoreInto(s.campaigns, decodeJSON[domain.CampaignMetadata]),
		"bankTransactions":   restoreInto(s.bank, decodeJSON[[]domain.BankTransaction]),
		"resources":          restoreInto(s.resources, decodeJSON[[]domain.Resource]),
		"parsedRateCardData": restoreInto(s.rateCard, decodeRateCard),
		"zohoConfig":         restoreInto(s.zohoConfig, decodeJSON[domain.ZohoConfig]),
		"entities":           restoreInto(s.entities, decodeJSON[domain.EntityState]),
		"preferences":        restoreInto(s.preferences, decodeJSON[domain.Preferences]),
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		if _, ok := restorers[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, invalid("ImportBackup", "backup contains no known collections")
	}
	sort.Strings(keys)

	writes := make([]func(ctx context.Context) error, 0, len(keys))
	for _, k := range keys {
		w, err := restorers[k](doc[k])
		if err != nil {
			return nil, fmt.Errorf("ImportBackup: %w: %s: %v", ErrInvalidInput, k, err)
		}
		writes = append(writes, w)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range writes {
		if err := w(ctx); err != nil {
			return nil, fmt.Errorf("ImportBackup: restoring %s: %w", keys[i], err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info().Strs("collections", keys).Msg("Backup restored")
	return &RestoreResult{Restored: keys}, nil
}

// Reset deletes every collection. phrase must equal ResetPhrase.
func (s *Service) Reset(ctx context.Context, phrase string) error {
	if phrase != ResetPhrase {
		return fmt.Errorf("Reset: %w: type %q to confirm", ErrConfirmationRequired, ResetPhrase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range store.AllKeys {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("Reset: %w", err)
		}
	}
	log := logger.FromContext(ctx)
	log.Warn().Msg("All data deleted")
	return nil
}
