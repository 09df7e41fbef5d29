package importer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// DefaultProject names rows that carry no project column.
const DefaultProject = domain.DefaultProject

// ErrNoHeader is returned when no sheet has a recognisable header row.
var ErrNoHeader = errors.New("no sheet with a recognisable header row")

type column int

const (
	colAmount column = iota
	colDate
	colProject
	colCurrency
	colCategory
	colType
	colStatus
	colInvoice
	colCustomer
	colVAT
)

// headerAliases maps normalised header text to a column.
var headerAliases = map[string]column{
	"amount":        colAmount,
	"total":         colAmount,
	"date":          colDate,
	"project":       colProject,
	"description":   colProject,
	"campaign":      colProject,
	"currency":      colCurrency,
	"category":      colCategory,
	"type":          colType,
	"status":        colStatus,
	"clientstatus":  colStatus,
	"invoicenumber": colInvoice,
	"invoice":       colInvoice,
	"invoiceno":     colInvoice,
	"customer":      colCustomer,
	"client":        colCustomer,
	"customername":  colCustomer,
	"clientname":    colCustomer,
	"vat":           colVAT,
}

// ExcelResult is the outcome of transforming a workbook.
type ExcelResult struct {
	Sheet        string               `json:"sheet"`
	Transactions []domain.Transaction `json:"transactions"`
	Skipped      int                  `json:"skipped"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// ParseExcel transforms every data row of the first sheet that has a header
// row into ledger rows. Nothing is persisted; the caller commits the batch.
func ParseExcel(r io.Reader, rates finance.Rates, now time.Time) (*ExcelResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ParseExcel: opening workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("ParseExcel: reading sheet %q: %w", sheet, err)
		}
		headerIdx, cols := findHeader(rows)
		if headerIdx < 0 {
			continue
		}

		res := &ExcelResult{Sheet: sheet, Transactions: []domain.Transaction{}}
		for i, row := range rows[headerIdx+1:] {
			if isBlank(row) {
				res.Skipped++
				continue
			}
			tx, warn := transformRow(row, cols, rates, now)
			if warn != "" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: %s", headerIdx+i+2, warn))
			}
			res.Transactions = append(res.Transactions, tx)
		}
		return res, nil
	}
	return nil, fmt.Errorf("ParseExcel: %w", ErrNoHeader)
}

// findHeader returns the index of the first non-blank row if it names at least one known column.
func findHeader(rows [][]string) (int, map[column]int) {
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		cols := make(map[column]int)
		for j, cell := range row {
			c, ok := headerAliases[normalizeHeader(cell)]
			if !ok {
				continue
			}
			if _, seen := cols[c]; !seen {
				cols[c] = j
			}
		}
		if len(cols) == 0 {
			return -1, nil
		}
		return i, cols
	}
	return -1, nil
}

func normalizeHeader(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-', '#', '.':
			return -1
		}
		return r
	}, s)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func transformRow(row []string, cols map[column]int, rates finance.Rates, now time.Time) (domain.Transaction, string) {
	get := func(c column) string {
		idx, ok := cols[c]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var warn string

	date := now
	if raw := get(colDate); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			warn = fmt.Sprintf("unreadable date %q, using today", raw)
		} else {
			date = d
		}
	}

	project := get(colProject)
	if project == "" {
		project = DefaultProject
	}

	status := domain.StatusPending
	if s, ok := domain.ParseStatus(get(colStatus)); ok {
		status = s
	}

	tx := domain.Transaction{
		ID:            uuid.NewString(),
		Date:          date.Format(domain.DateLayout),
		Year:          date.Year(),
		Project:       project,
		CustomerName:  get(colCustomer),
		InvoiceNumber: get(colInvoice),
		Currency:      domain.ParseCurrency(get(colCurrency)),
		Type:          domain.ParseTransactionType(get(colType)),
		Category:      domain.NormalizeCategory(get(colCategory)),
		ClientStatus:  status,
		PayoutStatus:  domain.StatusPending,
		Source:        domain.SourceExcel,
	}

	raw := get(colAmount)
	if raw == "" {
		// No amount: every derived field stays zero.
		return tx, warn
	}
	amount, err := parseAmount(raw)
	if err != nil {
		if warn == "" {
			warn = fmt.Sprintf("unreadable amount %q, using 0", raw)
		}
		return tx, warn
	}
	tx.Amount = amount
	if tx.Type == domain.TypeExpense {
		if vat, err := parseAmount(get(colVAT)); err == nil {
			tx.VAT = vat
		}
	}
	rates.Apply(&tx)
	return tx, warn
}

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
}

// parseDate accepts ISO dates, day-first dates and Excel date serials.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("parseDate: unsupported format %q", s)
}

// parseAmount reads numbers such as "1,050.00", "AED 500" or "(200)".
func parseAmount(s string) (float64, error) {
	clean := strings.NewReplacer(",", "", " ", "", "AED", "", "USD", "", "$", "", "(", "", ")", "").Replace(strings.ToUpper(s))
	if clean == "" {
		return 0, fmt.Errorf("parseAmount: empty value")
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("parseAmount: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parseAmount: %q is not finite", s)
	}
	return math.Abs(f), nil
}
