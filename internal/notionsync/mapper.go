package notionsync

import (
	"time"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the CRM database.
const (
	PropContactID      = "Contact ID"
	PropName           = "Name"
	PropCompany        = "Company"
	PropEmail          = "Email"
	PropPhone          = "Phone"
	PropTRN            = "TRN"
	PropStatus         = "Status"
	PropPotentialValue = "Potential Value"
	PropCurrency       = "Currency"
	PropNotes          = "Notes"
	PropUpdated        = "Updated"
)

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: s},
			},
		},
	}
}

// ContactToNotionProperties converts a CRM contact into page properties.
// The contact id is the page title so reruns can find the page again.
func ContactToNotionProperties(c domain.Contact) notionapi.Properties {
	props := notionapi.Properties{
		PropContactID: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: c.ID},
				},
			},
		},
		PropName: richText(c.Name),
		PropStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(c.Status)},
		},
		PropPotentialValue: notionapi.NumberProperty{Number: c.PotentialValue},
	}

	if c.Company != "" {
		props[PropCompany] = richText(c.Company)
	}
	if c.Email != "" {
		props[PropEmail] = notionapi.EmailProperty{Email: c.Email}
	}
	if c.Phone != "" {
		props[PropPhone] = notionapi.PhoneNumberProperty{PhoneNumber: c.Phone}
	}
	if c.TRN != "" {
		props[PropTRN] = richText(c.TRN)
	}
	if c.Currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(c.Currency)},
		}
	}
	if c.Notes != "" {
		props[PropNotes] = richText(c.Notes)
	}
	if !c.UpdatedAt.IsZero() {
		d := notionapi.Date(c.UpdatedAt.UTC().Truncate(time.Second))
		props[PropUpdated] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}
	return props
}

// extractContactID reads the "Contact ID" title of a page.
func extractContactID(page notionapi.Page) string {
	prop, ok := page.Properties[PropContactID]
	if !ok {
		return ""
	}
	switch title := prop.(type) {
	case *notionapi.TitleProperty:
		if len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	case notionapi.TitleProperty:
		if len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	}
	return ""
}
