// Package attachments resolves a saved query into work items, picks the
// attachments to fetch for each item and writes them below an output root.
package attachments

import "github.com/rescale/witdl/internal/models"

// ResolveQuery flattens a query result into work item ids in the order the
// service returned them. Duplicates are kept.
//
// Flat results contribute their items; tree results contribute the target
// of every link and never the source. found is false when the result is nil
// or carries no ids, which callers report as "no results" rather than an error.
func ResolveQuery(result models.QueryResult) (ids []int, found bool) {
	switch r := result.(type) {
	case models.FlatResult:
		ids = append(ids, r.Items...)
	case *models.FlatResult:
		if r != nil {
			ids = append(ids, r.Items...)
		}
	case models.TreeResult:
		ids = targetIDs(r.Links)
	case *models.TreeResult:
		if r != nil {
			ids = targetIDs(r.Links)
		}
	case nil:
		return nil, false
	}

	if len(ids) == 0 {
		return nil, false
	}
	return ids, true
}

func targetIDs(links []models.WorkItemLink) []int {
	ids := make([]int, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.TargetID)
	}
	return ids
}
