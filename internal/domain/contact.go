package domain

import (
	"strings"
	"time"
)

// ContactStatus is the stage of a lead in the sales pipeline.
type ContactStatus string

const (
	ContactNew          ContactStatus = "New"
	ContactContacted    ContactStatus = "Contacted"
	ContactQualified    ContactStatus = "Qualified"
	ContactProposalSent ContactStatus = "Proposal Sent"
	ContactNegotiation  ContactStatus = "Negotiation"
	ContactClosedWon    ContactStatus = "Closed Won"
	ContactClosedLost   ContactStatus = "Closed Lost"
)

// ContactStatuses lists the pipeline stages in order.
var ContactStatuses = []ContactStatus{
	ContactNew, ContactContacted, ContactQualified, ContactProposalSent,
	ContactNegotiation, ContactClosedWon, ContactClosedLost,
}

// ParseContactStatus defaults to New.
func ParseContactStatus(s string) ContactStatus {
	s = strings.TrimSpace(s)
	for _, st := range ContactStatuses {
		if strings.EqualFold(s, string(st)) {
			return st
		}
	}
	return ContactNew
}

// Contact is a CRM lead.
type Contact struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Company        string        `json:"company,omitempty"`
	Email          string        `json:"email,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	TRN            string        `json:"trn,omitempty"`
	Address        string        `json:"address,omitempty"`
	Status         ContactStatus `json:"status"`
	PotentialValue float64       `json:"potentialValue"`
	Currency       Currency      `json:"currency"`
	Notes          string        `json:"notes,omitempty"`
	Source         string        `json:"source,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}
