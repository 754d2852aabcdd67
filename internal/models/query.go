package models

// QueryResult is the result of running a saved query. It is exactly one of
// FlatResult or TreeResult; a nil QueryResult means the service returned no
// result at all.
type QueryResult interface {
	queryResult()
}

// FlatResult lists the matching work item ids in query order.
type FlatResult struct {
	Items []int
}

// TreeResult lists the links of a tree or one-hop query in query order.
type TreeResult struct {
	Links []WorkItemLink
}

func (FlatResult) queryResult() {}
func (TreeResult) queryResult() {}

// WorkItemLink is one source -> target edge of a tree query. SourceID is 0
// for top-level rows.
type WorkItemLink struct {
	SourceID int
	TargetID int
}

// Query types reported by the WIQL endpoint.
const (
	QueryTypeFlat   = "flat"
	QueryTypeTree   = "tree"
	QueryTypeOneHop = "oneHop"
)

// WiqlResult is the wire representation of GET _apis/wit/wiql/{id}.
type WiqlResult struct {
	QueryType         string              `json:"queryType"`
	QueryResultType   string              `json:"queryResultType,omitempty"`
	AsOf              string              `json:"asOf,omitempty"`
	WorkItems         []WorkItemReference `json:"workItems,omitempty"`
	WorkItemRelations []WorkItemLinkWire  `json:"workItemRelations,omitempty"`
}

// WorkItemReference is a work item id plus its REST URL.
type WorkItemReference struct {
	ID  int    `json:"id"`
	URL string `json:"url,omitempty"`
}

// WorkItemLinkWire is one row of a tree/one-hop WIQL result.
type WorkItemLinkWire struct {
	Rel    string             `json:"rel,omitempty"`
	Source *WorkItemReference `json:"source,omitempty"`
	Target *WorkItemReference `json:"target,omitempty"`
}

// QueryResult converts the wire result into the tagged union. Flat queries
// yield a FlatResult; tree and one-hop queries yield a TreeResult. Rows
// without a target are dropped.
func (w *WiqlResult) QueryResult() QueryResult {
	if w == nil {
		return nil
	}

	if w.QueryType == QueryTypeFlat || (w.QueryType == "" && len(w.WorkItemRelations) == 0) {
		ids := make([]int, 0, len(w.WorkItems))
		for _, item := range w.WorkItems {
			ids = append(ids, item.ID)
		}
		return FlatResult{Items: ids}
	}

	links := make([]WorkItemLink, 0, len(w.WorkItemRelations))
	for _, rel := range w.WorkItemRelations {
		if rel.Target == nil {
			continue
		}
		link := WorkItemLink{TargetID: rel.Target.ID}
		if rel.Source != nil {
			link.SourceID = rel.Source.ID
		}
		links = append(links, link)
	}
	return TreeResult{Links: links}
}
