package zoho

import (
	"strings"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/google/uuid"
)

// MapStatus translates a Zoho invoice status into a ledger status.
func MapStatus(s string) domain.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid":
		return domain.StatusPaid
	case "overdue":
		return domain.StatusOverdue
	case "draft":
		return domain.StatusDraft
	case "void":
		return domain.StatusVoid
	case "unpaid", "sent", "partially_paid":
		return domain.StatusUnpaid
	default:
		return domain.StatusPending
	}
}

// InvoiceToTransaction builds a new income row from an invoice. The project
// is the reference number, then the customer name, then DefaultProject.
func InvoiceToTransaction(inv Invoice, rates finance.Rates, now time.Time) domain.Transaction {
	date := now
	if d, err := time.Parse(domain.DateLayout, inv.Date); err == nil {
		date = d
	}
	project := strings.TrimSpace(inv.ReferenceNumber)
	if project == "" {
		project = strings.TrimSpace(inv.CustomerName)
	}
	if project == "" {
		project = domain.DefaultProject
	}

	amount := inv.Total
	if amount < 0 {
		amount = -amount
	}

	tx := domain.Transaction{
		ID:            uuid.NewString(),
		Date:          date.Format(domain.DateLayout),
		Year:          date.Year(),
		Project:       project,
		CustomerName:  strings.TrimSpace(inv.CustomerName),
		InvoiceNumber: strings.TrimSpace(inv.InvoiceNumber),
		Amount:        amount,
		Currency:      domain.ParseCurrency(inv.CurrencyCode),
		Type:          domain.TypeIncome,
		Category:      domain.CategoryCampaign,
		ClientStatus:  MapStatus(inv.Status),
		PayoutStatus:  domain.StatusPending,
		Source:        domain.SourceZoho,
	}
	rates.Apply(&tx)
	return tx
}

// MergeResult counts what an invoice or contact merge changed.
type MergeResult struct {
	InvoicesAdded   int `json:"invoicesAdded"`
	InvoicesUpdated int `json:"invoicesUpdated"`
	ContactsAdded   int `json:"contactsAdded"`
}

// MergeInvoices upserts invoices into the ledger by invoice number.
// Rows that already exist only have their client status refreshed.
func MergeInvoices(ledger []domain.Transaction, invoices []Invoice, rates finance.Rates, now time.Time) ([]domain.Transaction, MergeResult) {
	var res MergeResult

	byNumber := make(map[string]int, len(ledger))
	for i, tx := range ledger {
		if tx.InvoiceNumber != "" {
			byNumber[strings.ToUpper(tx.InvoiceNumber)] = i
		}
	}

	for _, inv := range invoices {
		number := strings.ToUpper(strings.TrimSpace(inv.InvoiceNumber))
		if number == "" {
			continue
		}
		if i, ok := byNumber[number]; ok {
			status := MapStatus(inv.Status)
			if ledger[i].ClientStatus != status {
				ledger[i].ClientStatus = status
				res.InvoicesUpdated++
			}
			continue
		}
		ledger = append(ledger, InvoiceToTransaction(inv, rates, now))
		byNumber[number] = len(ledger) - 1
		res.InvoicesAdded++
	}
	return ledger, res
}

// MergeContacts adds Zoho contacts whose name is not yet in the CRM.
func MergeContacts(existing []domain.Contact, incoming []Contact, now time.Time) ([]domain.Contact, int) {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(strings.TrimSpace(c.Name))] = true
	}

	added := 0
	for _, zc := range incoming {
		name := strings.TrimSpace(zc.ContactName)
		if name == "" {
			name = strings.TrimSpace(zc.CompanyName)
		}
		key := strings.ToLower(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, domain.Contact{
			ID:        uuid.NewString(),
			Name:      name,
			Company:   strings.TrimSpace(zc.CompanyName),
			Email:     strings.TrimSpace(zc.Email),
			Phone:     strings.TrimSpace(zc.Phone),
			Status:    domain.ContactNew,
			Currency:  domain.CurrencyAED,
			Source:    domain.SourceZoho,
			CreatedAt: now,
			UpdatedAt: now,
		})
		added++
	}
	return existing, added
}
