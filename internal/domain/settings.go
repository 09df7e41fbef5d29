package domain

import "time"

// Entity is a company profile shown on documents. It does not scope data.
type Entity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TRN     string `json:"trn,omitempty"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

// EntityState holds every profile and the one currently selected.
type EntityState struct {
	Entities []Entity `json:"entities"`
	ActiveID string   `json:"activeId,omitempty"`
}

// Resource is a saved link in the resource library.
type Resource struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Category string    `json:"category,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}

// RateCardItem is a priced deliverable on the rate card.
type RateCardItem struct {
	ID          string   `json:"id"`
	Platform    string   `json:"platform"`
	Deliverable string   `json:"deliverable"`
	Rate        float64  `json:"rate"`
	Currency    Currency `json:"currency"`
	Notes       string   `json:"notes,omitempty"`
}

// RateCard is the agency's price list.
type RateCard struct {
	Items     []RateCardItem `json:"items"`
	Source    string         `json:"source,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Chat roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ZohoConfig holds Zoho Books credentials.
type ZohoConfig struct {
	APIDomain      string     `json:"apiDomain"`
	AccountsDomain string     `json:"accountsDomain,omitempty"`
	OrganizationID string     `json:"organizationId"`
	AccessToken    string     `json:"accessToken,omitempty"`
	RefreshToken   string     `json:"refreshToken,omitempty"`
	ClientID       string     `json:"clientId,omitempty"`
	ClientSecret   string     `json:"clientSecret,omitempty"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
}

// SecretMask replaces secrets in redacted configs.
const SecretMask = "********"

// Redacted returns a copy without secrets, safe to show in a UI.
func (c ZohoConfig) Redacted() ZohoConfig {
	if c.AccessToken != "" {
		c.AccessToken = SecretMask
	}
	if c.RefreshToken != "" {
		c.RefreshToken = SecretMask
	}
	if c.ClientSecret != "" {
		c.ClientSecret = SecretMask
	}
	return c
}

// MergeSecrets keeps prev's secrets wherever c still carries the mask.
func (c ZohoConfig) MergeSecrets(prev ZohoConfig) ZohoConfig {
	if c.AccessToken == SecretMask {
		c.AccessToken = prev.AccessToken
	}
	if c.RefreshToken == SecretMask {
		c.RefreshToken = prev.RefreshToken
	}
	if c.ClientSecret == SecretMask {
		c.ClientSecret = prev.ClientSecret
	}
	return c
}

// Preferences are UI settings kept apart from bookkeeping data.
type Preferences struct {
	Theme         string            `json:"theme,omitempty"`
	DarkMode      bool              `json:"darkMode"`
	FontSize      string            `json:"fontSize,omitempty"`
	ColumnWidths  map[string]int    `json:"columnWidths,omitempty"`
	ColumnLabels  map[string]string `json:"columnLabels,omitempty"`
	DismissedTips []string          `json:"dismissedTips,omitempty"`
}
