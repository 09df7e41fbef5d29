package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIDomain is the Zoho Books API host for the global data centre.
	DefaultAPIDomain = "https://www.zohoapis.com"
	// DefaultAccountsDomain issues OAuth tokens for the global data centre.
	DefaultAccountsDomain = "https://accounts.zoho.com"

	perPage  = 200
	maxPages = 100
)

// ErrNotConfigured is returned when the organisation or credentials are missing.
var ErrNotConfigured = errors.New("zoho is not configured")

// Invoice is the subset of a Zoho Books invoice the ledger uses.
type Invoice struct {
	InvoiceID       string  `json:"invoice_id"`
	InvoiceNumber   string  `json:"invoice_number"`
	CustomerName    string  `json:"customer_name"`
	ReferenceNumber string  `json:"reference_number"`
	Date            string  `json:"date"`
	DueDate         string  `json:"due_date"`
	Status          string  `json:"status"`
	Total           float64 `json:"total"`
	CurrencyCode    string  `json:"currency_code"`
}

// Contact is the subset of a Zoho Books contact the CRM uses.
type Contact struct {
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ContactType string `json:"contact_type"`
}

type pageContext struct {
	Page        int  `json:"page"`
	HasMorePage bool `json:"has_more_page"`
}

type invoicesResponse struct {
	Code        int         `json:"code"`
	Message     string      `json:"message"`
	Invoices    []Invoice   `json:"invoices"`
	PageContext pageContext `json:"page_context"`
}

type contactsResponse struct {
	Code        int         `json:"code"`
	Message     string      `json:"message"`
	Contacts    []Contact   `json:"contacts"`
	PageContext pageContext `json:"page_context"`
}

// Client reads invoices and contacts from Zoho Books.
type Client struct {
	httpClient *http.Client
	apiDomain  string
	orgID      string
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outbound calls at perMinute with the given burst.
func WithRateLimit(perMinute, burst int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
		}
	}
}

// NewClient builds a client from the stored configuration. A refresh token
// with client credentials takes precedence over a static access token.
func NewClient(ctx context.Context, cfg domain.ZohoConfig, opts ...Option) (*Client, error) {
	if cfg.OrganizationID == "" {
		return nil, fmt.Errorf("NewClient: organization id: %w", ErrNotConfigured)
	}

	var tokens oauth2.TokenSource
	switch {
	case cfg.RefreshToken != "" && cfg.ClientID != "" && cfg.ClientSecret != "":
		accounts := cfg.AccountsDomain
		if accounts == "" {
			accounts = DefaultAccountsDomain
		}
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimRight(accounts, "/") + "/oauth/v2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		tokens = oauthConfig.TokenSource(ctx, &oauth2.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
		})
	case cfg.AccessToken != "":
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	default:
		return nil, fmt.Errorf("NewClient: credentials: %w", ErrNotConfigured)
	}

	api := cfg.APIDomain
	if api == "" {
		api = DefaultAPIDomain
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiDomain:  strings.TrimRight(api, "/"),
		orgID:      cfg.OrganizationID,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Every(600*time.Millisecond), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListInvoices pages through every invoice of the organisation.
func (c *Client) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var all []Invoice
	for page := 1; page <= maxPages; page++ {
		var resp invoicesResponse
		if err := c.get(ctx, "/books/v3/invoices", page, &resp); err != nil {
			return nil, fmt.Errorf("ListInvoices: page %d: %w", page, err)
		}
		all = append(all, resp.Invoices...)
		if !resp.PageContext.HasMorePage {
			break
		}
	}
	return all, nil
}

// ListContacts pages through every contact of the organisation.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var all []Contact
	for page := 1; page <= maxPages; page++ {
		var resp contactsResponse
		if err := c.get(ctx, "/books/v3/contacts", page, &resp); err != nil {
			return nil, fmt.Errorf("ListContacts: page %d: %w", page, err)
		}
		all = append(all, resp.Contacts...)
		if !resp.PageContext.HasMorePage {
			break
		}
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, path string, page int, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("obtaining token: %w", err)
	}

	q := url.Values{}
	q.Set("organization_id", c.orgID)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiDomain+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zoho API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
