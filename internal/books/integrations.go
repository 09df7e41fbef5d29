package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/agency-ledger/internal/domain"
	bq "github.com/dvloznov/agency-ledger/internal/infra/bigquery"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/dvloznov/agency-ledger/internal/notionsync"
	"github.com/dvloznov/agency-ledger/internal/zoho"
)

// GetZohoConfig returns the Zoho settings with secrets masked.
func (s *Service) GetZohoConfig(ctx context.Context) (*domain.ZohoConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.zohoConfig.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetZohoConfig: %w", err)
	}
	redacted := cfg.Redacted()
	return &redacted, nil
}

// SetZohoConfig stores the Zoho settings. Masked secrets keep their stored value.
func (s *Service) SetZohoConfig(ctx context.Context, cfg domain.ZohoConfig) (*domain.ZohoConfig, error) {
	cfg.APIDomain = strings.TrimSpace(cfg.APIDomain)
	cfg.OrganizationID = strings.TrimSpace(cfg.OrganizationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.zohoConfig.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("SetZohoConfig: %w", err)
	}
	cfg = cfg.MergeSecrets(prev)
	cfg.LastSyncAt = prev.LastSyncAt
	if err := s.zohoConfig.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("SetZohoConfig: %w", err)
	}
	redacted := cfg.Redacted()
	return &redacted, nil
}

// ZohoSyncResult counts what a Zoho sync changed.
type ZohoSyncResult struct {
	zoho.MergeResult
	Invoices int `json:"invoices"`
	Contacts int `json:"contacts"`
}

// SyncZoho pulls invoices and contacts from Zoho Books. Invoices are upserted
// by invoice number and unknown contacts are added to the CRM.
func (s *Service) SyncZoho(ctx context.Context) (*ZohoSyncResult, error) {
	if s.zoho == nil {
		return nil, fmt.Errorf("SyncZoho: %w", ErrUnavailable)
	}

	s.mu.Lock()
	cfg, err := s.zohoConfig.Load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}

	client, err := s.zoho(ctx, cfg)
	if errors.Is(err, zoho.ErrNotConfigured) {
		return nil, fmt.Errorf("SyncZoho: %w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}
	invoices, err := client.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}
	contacts, err := client.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ledger, err := s.transactions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}
	ledger, res := zoho.MergeInvoices(ledger, invoices, s.rates, now)
	if res.InvoicesAdded > 0 || res.InvoicesUpdated > 0 {
		if err := s.transactions.Save(ctx, ledger); err != nil {
			return nil, fmt.Errorf("SyncZoho: %w", err)
		}
	}

	crm, err := s.contacts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}
	crm, res.ContactsAdded = zoho.MergeContacts(crm, contacts, now)
	if res.ContactsAdded > 0 {
		if err := s.contacts.Save(ctx, crm); err != nil {
			return nil, fmt.Errorf("SyncZoho: %w", err)
		}
	}

	// Reload so a concurrent config edit is not overwritten.
	stored, err := s.zohoConfig.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}
	stored.LastSyncAt = &now
	if err := s.zohoConfig.Save(ctx, stored); err != nil {
		return nil, fmt.Errorf("SyncZoho: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("invoices", len(invoices)).
		Int("invoices_added", res.InvoicesAdded).
		Int("invoices_updated", res.InvoicesUpdated).
		Int("contacts_added", res.ContactsAdded).
		Msg("Zoho sync completed")
	return &ZohoSyncResult{MergeResult: res, Invoices: len(invoices), Contacts: len(contacts)}, nil
}

// SyncNotion pushes the CRM contacts to the Notion database.
func (s *Service) SyncNotion(ctx context.Context, dryRun bool) (*notionsync.SyncResult, error) {
	if s.notion == nil || s.notionDB == "" {
		return nil, fmt.Errorf("SyncNotion: %w", ErrUnavailable)
	}
	contacts, err := s.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("SyncNotion: %w", err)
	}
	res, err := notionsync.SyncContacts(ctx, contacts, s.notion, s.notionDB, dryRun)
	if err != nil {
		return nil, fmt.Errorf("SyncNotion: %w", err)
	}
	return res, nil
}

// ExportWarehouse writes the current ledger as a new warehouse snapshot.
func (s *Service) ExportWarehouse(ctx context.Context) (*bq.SnapshotSummary, error) {
	if s.warehouse == nil {
		return nil, fmt.Errorf("ExportWarehouse: %w", ErrUnavailable)
	}
	txs, err := s.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("ExportWarehouse: %w", err)
	}
	summary, err := s.warehouse.ExportSnapshot(ctx, txs, s.rates)
	if err != nil {
		return nil, fmt.Errorf("ExportWarehouse: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("snapshot_id", summary.SnapshotID).
		Int64("rows", summary.Rows).
		Msg("Warehouse snapshot exported")
	return summary, nil
}

// ListSnapshots lists past warehouse snapshots, newest first.
func (s *Service) ListSnapshots(ctx context.Context, limit int) ([]*bq.SnapshotSummary, error) {
	if s.warehouse == nil {
		return nil, fmt.Errorf("ListSnapshots: %w", ErrUnavailable)
	}
	out, err := s.warehouse.ListSnapshots(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: %w", err)
	}
	return out, nil
}
