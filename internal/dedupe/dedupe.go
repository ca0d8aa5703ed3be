package dedupe

import (
	"context"
	"sort"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/pkg/notion"
)

// PageInfo is the slice of a page relevant to duplicate resolution.
type PageInfo struct {
	ID          string
	Title       string
	ContentHash string
	CreatedAt   time.Time
}

// Group is a set of pages sharing a content hash. Pages are sorted by
// creation time; the first one is kept.
type Group struct {
	Hash  string
	Pages []PageInfo
}

// Keep returns the page that survives archival.
func (g Group) Keep() PageInfo { return g.Pages[0] }

// Duplicates returns the pages to archive.
func (g Group) Duplicates() []PageInfo { return g.Pages[1:] }

// FindGroups hashes every page and returns the groups with more than one
// member, oldest page first within each group.
func FindGroups(pages []notionapi.Page) []Group {
	byHash := make(map[string][]PageInfo)
	for _, page := range pages {
		hash := ContentHash(page)
		byHash[hash] = append(byHash[hash], PageInfo{
			ID:          string(page.ID),
			Title:       pageTitle(page),
			ContentHash: hash,
			CreatedAt:   page.CreatedTime,
		})
	}

	var groups []Group
	for hash, members := range byHash {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})
		groups = append(groups, Group{Hash: hash, Pages: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Hash < groups[j].Hash })
	return groups
}

func pageTitle(page notionapi.Page) string {
	for _, prop := range page.Properties {
		if p, ok := prop.(*notionapi.TitleProperty); ok && len(p.Title) > 0 {
			return joinRichText(p.Title)
		}
	}
	return "Untitled"
}

// Result summarizes a cleanup run.
type Result struct {
	TotalPages int
	Groups     int
	Archived   int
	DryRun     bool
}

// Runner executes duplicate cleanup against a CRM database.
type Runner struct {
	client notion.Client
	ledger *Ledger
	dbID   string
}

// NewRunner creates a cleanup runner. A nil ledger disables the local
// archive record.
func NewRunner(client notion.Client, ledger *Ledger, dbID string) *Runner {
	return &Runner{client: client, ledger: ledger, dbID: dbID}
}

// Run finds duplicate groups and archives all but the oldest page of each.
// With dryRun set it only reports what would be archived. Archival failures
// on individual pages are logged and skipped so one stuck page does not
// abort the rest of the cleanup.
func (r *Runner) Run(ctx context.Context, dryRun bool) (*Result, error) {
	pages, err := notion.QueryAll(ctx, r.client, r.dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: query database")
	}

	groups := FindGroups(pages)
	res := &Result{TotalPages: len(pages), Groups: len(groups), DryRun: dryRun}

	for _, g := range groups {
		zap.L().Info("duplicate group",
			zap.String("keep", g.Keep().Title),
			zap.Int("duplicates", len(g.Duplicates())),
		)
		if dryRun {
			continue
		}

		for _, dup := range g.Duplicates() {
			if err := r.client.ArchivePage(ctx, dup.ID); err != nil {
				zap.L().Error("archive failed",
					zap.String("page", dup.ID),
					zap.Error(err),
				)
				continue
			}
			if r.ledger != nil {
				if err := r.ledger.Record(ctx, dup); err != nil {
					zap.L().Warn("ledger write failed", zap.Error(err))
				}
			}
			res.Archived++
		}
	}
	return res, nil
}
