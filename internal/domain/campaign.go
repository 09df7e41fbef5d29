package domain

import "time"

// Deliverable is one contracted piece of content inside a campaign.
type Deliverable struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Rate        float64  `json:"rate"`
	Quantity    float64  `json:"quantity"`
	Currency    Currency `json:"currency"`
	Platform    string   `json:"platform,omitempty"`
	IsCompleted bool     `json:"isCompleted"`
	AssetLink   string   `json:"assetLink,omitempty"`
	PostedDate  string   `json:"postedDate,omitempty"`
}

// CampaignFile is an uploaded document attached to a campaign.
type CampaignFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URI         string    `json:"uri"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// CampaignMeta is the metadata stored for a campaign, keyed by project name.
type CampaignMeta struct {
	Files         []CampaignFile `json:"files"`
	Deliverables  []Deliverable  `json:"deliverables"`
	MergedSources []string       `json:"mergedSources"`
}

// CampaignMetadata maps a project name to its metadata.
type CampaignMetadata map[string]CampaignMeta

// Campaign is the computed view of a visible campaign.
type Campaign struct {
	Name                  string         `json:"name"`
	Files                 []CampaignFile `json:"files"`
	Deliverables          []Deliverable  `json:"deliverables"`
	MergedSources         []string       `json:"mergedSources"`
	TransactionCount      int            `json:"transactionCount"`
	Billed                float64        `json:"billed"`
	DeliverableValue      float64        `json:"deliverableValue"`
	BillingGap            float64        `json:"billingGap"`
	CompletedDeliverables int            `json:"completedDeliverables"`
}
