// Package campaigns derives the campaign list from the ledger and metadata,
// and implements merging and renaming.
package campaigns

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/finance"
	"github.com/shopspring/decimal"
)

var (
	ErrTooFewCampaigns = errors.New("at least two campaigns are required to merge")
	ErrEmptyName       = errors.New("campaign name is empty")
	ErrNameTaken       = errors.New("campaign name already in use")
	ErrUnknownCampaign = errors.New("campaign does not exist")
	ErrMergedSource    = errors.New("campaign was merged into another campaign")
)

// Discover lists the visible campaigns: every distinct project name plus
// every metadata key, minus names that were merged into another campaign.
func Discover(txs []domain.Transaction, meta domain.CampaignMetadata) []string {
	names := make(map[string]bool)
	for i := range txs {
		if p := strings.TrimSpace(txs[i].Project); p != "" {
			names[p] = true
		}
	}
	for name := range meta {
		if strings.TrimSpace(name) != "" {
			names[name] = true
		}
	}

	hidden := make(map[string]bool)
	for owner, m := range meta {
		for _, src := range m.MergedSources {
			if src != owner {
				hidden[src] = true
			}
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		if !hidden[name] {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}

// MergedInto returns the campaign that absorbed name, if any.
func MergedInto(meta domain.CampaignMetadata, name string) (string, bool) {
	for owner, m := range meta {
		if owner == name {
			continue
		}
		for _, src := range m.MergedSources {
			if src == name {
				return owner, true
			}
		}
	}
	return "", false
}

// Exists reports whether name is a known project or metadata key.
func Exists(txs []domain.Transaction, meta domain.CampaignMetadata, name string) bool {
	if _, ok := meta[name]; ok {
		return true
	}
	for i := range txs {
		if txs[i].Project == name {
			return true
		}
	}
	return false
}

// Merge folds names into the longest of them (first wins on ties). Sources
// are recorded in the target's mergedSources, their deliverables and files
// move to the target and their metadata entries are removed. Transactions
// are not rewritten. It returns the target name.
func Merge(meta domain.CampaignMetadata, names []string) (string, error) {
	names = domain.UniqueIDs(names)
	if len(names) < 2 {
		return "", ErrTooFewCampaigns
	}

	target := names[0]
	for _, n := range names[1:] {
		if utf8.RuneCountInString(n) > utf8.RuneCountInString(target) {
			target = n
		}
	}

	tm := meta[target]
	merged := append([]string{}, tm.MergedSources...)
	for _, src := range names {
		if src == target {
			continue
		}
		sm := meta[src]
		merged = append(merged, src)
		merged = append(merged, sm.MergedSources...)
		tm.Deliverables = append(tm.Deliverables, sm.Deliverables...)
		tm.Files = append(tm.Files, sm.Files...)
		delete(meta, src)
	}

	sources := make([]string, 0, len(merged))
	for _, s := range domain.UniqueIDs(merged) {
		if s != target {
			sources = append(sources, s)
		}
	}
	tm.MergedSources = sources
	meta[target] = normalize(tm)
	return target, nil
}

// Rename moves a campaign to a new name. Only transactions whose project
// equals oldName exactly are rewritten; merged sources are left alone.
// A name that was merged into another campaign cannot be renamed.
// It returns the number of rewritten transactions.
func Rename(txs []domain.Transaction, meta domain.CampaignMetadata, oldName, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return 0, ErrEmptyName
	}
	if !Exists(txs, meta, oldName) {
		return 0, ErrUnknownCampaign
	}
	if _, ok := MergedInto(meta, oldName); ok {
		return 0, ErrMergedSource
	}
	if newName == oldName {
		return 0, nil
	}
	if Exists(txs, meta, newName) {
		return 0, ErrNameTaken
	}

	changed := 0
	for i := range txs {
		if txs[i].Project == oldName {
			txs[i].Project = newName
			changed++
		}
	}
	if m, ok := meta[oldName]; ok {
		meta[newName] = m
		delete(meta, oldName)
	}
	return changed, nil
}

// Rollup computes the per-campaign view for the given visible names.
// Totals include transactions filed under merged sources and are in AED.
func Rollup(names []string, txs []domain.Transaction, meta domain.CampaignMetadata, r finance.Rates) []domain.Campaign {
	out := make([]domain.Campaign, 0, len(names))
	for _, name := range names {
		m := normalize(meta[name])
		members := map[string]bool{name: true}
		for _, s := range m.MergedSources {
			members[s] = true
		}

		var billed, value decimal.Decimal
		count := 0
		for i := range txs {
			tx := &txs[i]
			if !members[tx.Project] {
				continue
			}
			count++
			if tx.Type == domain.TypeIncome {
				billed = billed.Add(r.ToAED(tx.Amount, tx.Currency))
			}
		}

		completed := 0
		for _, d := range m.Deliverables {
			line := decimal.NewFromFloat(d.Rate).Mul(decimal.NewFromFloat(d.Quantity))
			value = value.Add(r.ToAED(line.InexactFloat64(), d.Currency))
			if d.IsCompleted {
				completed++
			}
		}

		out = append(out, domain.Campaign{
			Name:                  name,
			Files:                 m.Files,
			Deliverables:          m.Deliverables,
			MergedSources:         m.MergedSources,
			TransactionCount:      count,
			Billed:                billed.Round(2).InexactFloat64(),
			DeliverableValue:      value.Round(2).InexactFloat64(),
			BillingGap:            value.Sub(billed).Round(2).InexactFloat64(),
			CompletedDeliverables: completed,
		})
	}
	return out
}

func normalize(m domain.CampaignMeta) domain.CampaignMeta {
	if m.Files == nil {
		m.Files = []domain.CampaignFile{}
	}
	if m.Deliverables == nil {
		m.Deliverables = []domain.Deliverable{}
	}
	if m.MergedSources == nil {
		m.MergedSources = []string{}
	}
	return m
}

// Normalize fills nil slices so the metadata serialises as empty arrays.
func Normalize(m domain.CampaignMeta) domain.CampaignMeta {
	return normalize(m)
}
