package finance

import (
	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Default rates used by the agency.
const (
	DefaultVATRate  = 0.05
	DefaultFeeRate  = 0.15
	DefaultUSDToAED = 3.6725
)

// Rates holds the VAT rate, agency fee rate and the fixed USD to AED peg.
type Rates struct {
	VAT      decimal.Decimal
	Fee      decimal.Decimal
	USDToAED decimal.Decimal
}

// NewRates builds Rates from plain floats.
func NewRates(vat, fee, usdToAED float64) Rates {
	return Rates{
		VAT:      decimal.NewFromFloat(vat),
		Fee:      decimal.NewFromFloat(fee),
		USDToAED: decimal.NewFromFloat(usdToAED),
	}
}

// DefaultRates returns 5% VAT, 15% fee and the 3.6725 peg.
func DefaultRates() Rates {
	return NewRates(DefaultVATRate, DefaultFeeRate, DefaultUSDToAED)
}

// Breakdown is the derived money cascade of a ledger row.
type Breakdown struct {
	Net           float64 `json:"net"`
	VAT           float64 `json:"vat"`
	Fee           float64 `json:"fee"`
	Payable       float64 `json:"payable"`
	ClientPayment float64 `json:"clientPayment"`
}

// Income derives the cascade for a VAT-inclusive income amount.
// Every step is rounded to 2 dp before it feeds the next one.
func (r Rates) Income(amount float64) Breakdown {
	a := decimal.NewFromFloat(amount)
	net := a.Div(one.Add(r.VAT)).Round(2)
	vat := a.Sub(net).Round(2)
	fee := net.Mul(r.Fee).Round(2)
	payable := net.Sub(fee).Round(2)
	clientPayment := payable.Mul(one.Add(r.VAT)).Round(2)

	return Breakdown{
		Net:           net.InexactFloat64(),
		VAT:           vat.InexactFloat64(),
		Fee:           fee.InexactFloat64(),
		Payable:       payable.InexactFloat64(),
		ClientPayment: clientPayment.InexactFloat64(),
	}
}

// Expense derives the fields of an expense row from the user-supplied VAT.
// Fee, payable and client payment do not apply to costs.
func (r Rates) Expense(amount, vat float64) Breakdown {
	a := decimal.NewFromFloat(amount)
	v := decimal.NewFromFloat(vat).Round(2)
	return Breakdown{
		Net: a.Sub(v).Round(2).InexactFloat64(),
		VAT: v.InexactFloat64(),
	}
}

// Apply recomputes the derived fields of tx in place.
func (r Rates) Apply(tx *domain.Transaction) {
	var b Breakdown
	if tx.Type == domain.TypeExpense {
		b = r.Expense(tx.Amount, tx.VAT)
	} else {
		b = r.Income(tx.Amount)
	}
	tx.Net = b.Net
	tx.VAT = b.VAT
	tx.Fee = b.Fee
	tx.Payable = b.Payable
	tx.ClientPayment = b.ClientPayment
}

// ToAED converts amount into AED at the fixed peg.
func (r Rates) ToAED(amount float64, currency domain.Currency) decimal.Decimal {
	d := decimal.NewFromFloat(amount)
	if currency == domain.CurrencyUSD {
		return d.Mul(r.USDToAED)
	}
	return d
}

// Convert moves amount between the two supported currencies.
func (r Rates) Convert(amount float64, from, to domain.Currency) decimal.Decimal {
	aed := r.ToAED(amount, from)
	if to == domain.CurrencyUSD {
		return aed.Div(r.USDToAED)
	}
	return aed
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
