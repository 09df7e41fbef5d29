package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used by every record.
const DateLayout = "2006-01-02"

// DefaultProject names imported rows that carry no project of their own.
const DefaultProject = "Imported Project"

// Currency is one of the two currencies the agency bills in.
type Currency string

const (
	CurrencyAED Currency = "AED"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency normalises s, falling back to AED for anything unknown.
func ParseCurrency(s string) Currency {
	if strings.EqualFold(strings.TrimSpace(s), string(CurrencyUSD)) {
		return CurrencyUSD
	}
	return CurrencyAED
}

// TransactionType separates billed income from costs.
type TransactionType string

const (
	TypeIncome  TransactionType = "Income"
	TypeExpense TransactionType = "Expense"
)

// ParseTransactionType defaults to Income.
func ParseTransactionType(s string) TransactionType {
	if strings.EqualFold(strings.TrimSpace(s), string(TypeExpense)) {
		return TypeExpense
	}
	return TypeIncome
}

// Status is shared by the client (inbound) and payout (outbound) legs.
type Status string

const (
	StatusPaid         Status = "Paid"
	StatusPending      Status = "Pending"
	StatusUnpaid       Status = "Unpaid"
	StatusOverdue      Status = "Overdue"
	StatusVoid         Status = "Void"
	StatusDraft        Status = "Draft"
	StatusPaidPersonal Status = "Paid to personal account"
)

var statuses = []Status{
	StatusPaid, StatusPending, StatusUnpaid, StatusOverdue,
	StatusVoid, StatusDraft, StatusPaidPersonal,
}

// ParseStatus matches s case-insensitively. ok is false when s is not a known status.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// IsSettled reports whether the money for this leg has been received.
func (s Status) IsSettled() bool {
	return s == StatusPaid || s == StatusPaidPersonal
}

// IsOutstanding reports whether the leg is billed but not yet settled.
func (s Status) IsOutstanding() bool {
	return s == StatusUnpaid || s == StatusPending || s == StatusOverdue
}

// Category is the bookkeeping category of a ledger row.
type Category string

const (
	CategoryCampaign         Category = "Campaign"
	CategoryEvent            Category = "Event"
	CategoryUGC              Category = "UGC"
	CategoryConsulting       Category = "Consulting"
	CategoryCommission       Category = "Commission"
	CategorySalary           Category = "Salary"
	CategoryRent             Category = "Rent"
	CategorySoftware         Category = "Software"
	CategoryTravel           Category = "Travel"
	CategoryMarketing        Category = "Marketing"
	CategoryProfessionalFees Category = "Professional Fees"
	CategoryBankCharges      Category = "Bank Charges"
	CategoryOther            Category = "Other"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryCampaign, CategoryEvent, CategoryUGC, CategoryConsulting,
	CategoryCommission, CategorySalary, CategoryRent, CategorySoftware,
	CategoryTravel, CategoryMarketing, CategoryProfessionalFees,
	CategoryBankCharges, CategoryOther,
}

// NormalizeCategory maps s onto a known category, case and space insensitive.
// Unknown values become Other.
func NormalizeCategory(s string) Category {
	key := normalizeKey(s)
	for _, c := range Categories {
		if normalizeKey(string(c)) == key {
			return c
		}
	}
	return CategoryOther
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// Transaction is one row of the income/expense ledger.
type Transaction struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	Year          int             `json:"year"`
	Project       string          `json:"project"`
	CustomerName  string          `json:"customerName,omitempty"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	Amount        float64         `json:"amount"`
	Currency      Currency        `json:"currency"`
	VAT           float64         `json:"vat"`
	Net           float64         `json:"net"`
	Fee           float64         `json:"fee"`
	Payable       float64         `json:"payable"`
	ClientPayment float64         `json:"clientPayment"`
	Type          TransactionType `json:"type"`
	Category      Category        `json:"category"`
	ClientStatus  Status          `json:"clientStatus"`

	// PayoutStatus and PayoutRef describe the outbound leg (talent payout or expense payment).
	PayoutStatus Status `json:"ladlyStatus"`
	PayoutRef    string `json:"paymentToLmRef,omitempty"`

	// ReferenceNumber holds the bank id of the inbound payment.
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	MergedFrom      string `json:"mergedFrom,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Transaction sources.
const (
	SourceManual = "manual"
	SourceExcel  = "excel"
	SourceZoho   = "zoho"
	SourceBank   = "bank"
)

// DateOrZero parses the transaction date, returning the zero time when it is malformed.
func (t *Transaction) DateOrZero() time.Time {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}
