package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/agency-ledger/internal/domain"
	"github.com/dvloznov/agency-ledger/internal/logger"
	"github.com/jomei/notionapi"
)

// SyncResult counts what a sync did, or would do in dry-run mode.
type SyncResult struct {
	Created  int  `json:"created"`
	Updated  int  `json:"updated"`
	Archived int  `json:"archived"`
	Failed   int  `json:"failed"`
	DryRun   bool `json:"dryRun"`
}

// SyncContacts mirrors the CRM into a Notion database. Pages are matched on
// their "Contact ID" title; pages with no id or an unknown id are archived.
// Per-page API failures are logged and counted, not returned.
func SyncContacts(ctx context.Context, contacts []domain.Contact, notionClient NotionService, notionDBID string, dryRun bool) (*SyncResult, error) {
	log := logger.FromContext(ctx)
	res := &SyncResult{DryRun: dryRun}

	log.Info().
		Int("contact_count", len(contacts)).
		Bool("dry_run", dryRun).
		Msg("Starting contacts sync to Notion")

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return nil, fmt.Errorf("SyncContacts: querying Notion pages: %w", err)
	}
	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	valid := make(map[string]bool, len(contacts))
	for _, c := range contacts {
		valid[c.ID] = true
	}

	// First page wins when a contact id appears twice; the rest are stale.
	pageByContact := make(map[string]string)
	for _, page := range notionPages {
		id := extractContactID(page)
		pageID := string(page.ID)

		if id != "" && valid[id] && pageByContact[id] == "" {
			pageByContact[id] = pageID
			continue
		}

		if dryRun {
			log.Info().Str("contact_id", id).Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, pageID); err != nil {
			log.Warn().Err(err).Str("contact_id", id).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, c := range contacts {
		pageID, exists := pageByContact[c.ID]

		if dryRun {
			if exists {
				log.Info().Str("contact_id", c.ID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				res.Updated++
			} else {
				log.Info().Str("contact_id", c.ID).Msg("[DRY RUN] Would create Notion page")
				res.Created++
			}
			continue
		}

		props := ContactToNotionProperties(c)
		if exists {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("contact_id", c.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().Err(err).Str("contact_id", c.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("contact_id", c.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Contacts sync completed")

	return res, nil
}

// queryAllNotionPages follows the cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return allPages, nil
}
