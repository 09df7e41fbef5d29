// Package books owns every bookkeeping collection and serialises all
// read-modify-write cycles behind a single mutex.
package books

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/agency-ledger/internal/documents"
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	bq "github.com/dvloznov/agency-ledger/internal/infra/bigquery"
	"github.com/dvloznov/agency-ledger/internal/llm"
	"github.com/dvloznov/agency-ledger/internal/notionsync"
	"github.com/dvloznov/agency-ledger/internal/store"
	"github.com/dvloznov/agency-ledger/internal/zoho"
	"github.com/patrickmn/go-cache"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrUnavailable          = errors.New("integration not configured")
)

// DefaultReportTTL bounds how long a cached report lives without a write.
const DefaultReportTTL = 5 * time.Minute

// DocumentParser reads structured drafts out of uploaded documents.
type DocumentParser interface {
	ParseContract(ctx context.Context, doc llm.Attachment) (*llm.DeliverableResult, error)
	ParseContact(ctx context.Context, doc llm.Attachment) (*llm.ContactResult, error)
	ParseRateCard(ctx context.Context, doc llm.Attachment) (*llm.RateCardResult, error)
}

// Responder answers chat questions.
type Responder interface {
	Reply(ctx context.Context, history []domain.ChatMessage, snapshot, question string) (string, error)
}

// ZohoSource lists Zoho Books records.
type ZohoSource interface {
	ListInvoices(ctx context.Context) ([]zoho.Invoice, error)
	ListContacts(ctx context.Context) ([]zoho.Contact, error)
}

// ZohoFactory builds a ZohoSource from the stored credentials.
type ZohoFactory func(ctx context.Context, cfg domain.ZohoConfig) (ZohoSource, error)

// Options wires the optional collaborators of a Service.
type Options struct {
	Rates     finance.Rates
	Parser    DocumentParser
	Assistant Responder
	Documents documents.Store
	Zoho      ZohoFactory

	Notion           notionsync.NotionService
	NotionDatabaseID string

	Warehouse bq.Warehouse

	ReportTTL time.Duration
	Now       func() time.Time
}

// Service is the single writer of the books.
type Service struct {
	mu sync.Mutex

	store        *store.Store
	transactions *store.Collection[[]domain.Transaction]
	bank         *store.Collection[[]domain.BankTransaction]
	campaigns    *store.Collection[domain.CampaignMetadata]
	contacts     *store.Collection[[]domain.Contact]
	resources    *store.Collection[[]domain.Resource]
	rateCard     *store.Collection[domain.RateCard]
	chat         *store.Collection[[]domain.ChatMessage]
	zohoConfig   *store.Collection[domain.ZohoConfig]
	entities     *store.Collection[domain.EntityState]
	preferences  *store.Collection[domain.Preferences]

	rates     finance.Rates
	parser    DocumentParser
	assistant Responder
	docs      documents.Store
	zoho      ZohoFactory
	notion    notionsync.NotionService
	notionDB  string
	warehouse bq.Warehouse
	now       func() time.Time

	reportCache *cache.Cache
	unsubscribe func()
}

// New creates a Service on top of st. Report caches are dropped whenever
// the ledger, the bank feed or the campaign metadata is written.
func New(st *store.Store, opts Options) *Service {
	if opts.Rates.USDToAED.IsZero() {
		opts.Rates = finance.DefaultRates()
	}
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = DefaultReportTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		store:        st,
		transactions: store.NewCollection[[]domain.Transaction](st, store.KeyTransactions),
		bank:         store.NewCollection[[]domain.BankTransaction](st, store.KeyBankTransactions),
		campaigns:    store.NewCollection[domain.CampaignMetadata](st, store.KeyCampaignMetadata),
		contacts:     store.NewCollection[[]domain.Contact](st, store.KeyContacts),
		resources:    store.NewCollection[[]domain.Resource](st, store.KeyResources),
		rateCard:     store.NewCollection[domain.RateCard](st, store.KeyParsedRateCard),
		chat:         store.NewCollection[[]domain.ChatMessage](st, store.KeyChatHistory),
		zohoConfig:   store.NewCollection[domain.ZohoConfig](st, store.KeyZohoConfig),
		entities:     store.NewCollection[domain.EntityState](st, store.KeyEntities),
		preferences:  store.NewCollection[domain.Preferences](st, store.KeyPreferences),

		rates:     opts.Rates,
		parser:    opts.Parser,
		assistant: opts.Assistant,
		docs:      opts.Documents,
		zoho:      opts.Zoho,
		notion:    opts.Notion,
		notionDB:  opts.NotionDatabaseID,
		warehouse: opts.Warehouse,
		now:       opts.Now,

		reportCache: cache.New(opts.ReportTTL, 2*opts.ReportTTL),
	}

	s.unsubscribe = st.Subscribe(func(key string) {
		switch key {
		case store.KeyTransactions, store.KeyBankTransactions, store.KeyCampaignMetadata:
			s.reportCache.Flush()
		}
	})
	return s
}

// Close detaches the service from the store.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Rates returns the configured VAT, fee and currency rates.
func (s *Service) Rates() finance.Rates {
	return s.rates
}

func (s *Service) today() string {
	return s.now().Format(domain.DateLayout)
}

func notFound(op, what, id string) error {
	return fmt.Errorf("%s: %s %q: %w", op, what, id, ErrNotFound)
}

func invalid(op, msg string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrInvalidInput, msg)
}

// cached returns the report stored under key or builds and stores it.
func cached[T any](s *Service, key string, build func() (T, error)) (T, error) {
	if v, found := s.reportCache.Get(key); found {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	s.reportCache.Set(key, v, cache.DefaultExpiration)
	return v, nil
}
