package attachments

import (
	"slices"
	"testing"

	"github.com/rescale/witdl/internal/models"
)

func TestResolveQuery(t *testing.T) {
	tests := []struct {
		name      string
		result    models.QueryResult
		wantIDs   []int
		wantFound bool
	}{
		{"nil result", nil, nil, false},
		{"flat", models.FlatResult{Items: []int{101, 102, 103}}, []int{101, 102, 103}, true},
		{"flat pointer", &models.FlatResult{Items: []int{7}}, []int{7}, true},
		{"flat empty", models.FlatResult{}, nil, false},
		{"flat keeps duplicates", models.FlatResult{Items: []int{5, 5, 6}}, []int{5, 5, 6}, true},
		{
			"tree uses targets only",
			models.TreeResult{Links: []models.WorkItemLink{
				{SourceID: 0, TargetID: 10},
				{SourceID: 10, TargetID: 11},
				{SourceID: 10, TargetID: 12},
			}},
			[]int{10, 11, 12},
			true,
		},
		{
			"tree pointer",
			&models.TreeResult{Links: []models.WorkItemLink{{SourceID: 1, TargetID: 2}}},
			[]int{2},
			true,
		},
		{"tree empty", models.TreeResult{}, nil, false},
		{"nil flat pointer", (*models.FlatResult)(nil), nil, false},
		{"nil tree pointer", (*models.TreeResult)(nil), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, found := ResolveQuery(tt.result)
			if found != tt.wantFound {
				t.Errorf("found = %v, want %v", found, tt.wantFound)
			}
			if !slices.Equal(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestResolveQuery_FromWire(t *testing.T) {
	wire := &models.WiqlResult{
		QueryType: models.QueryTypeOneHop,
		WorkItemRelations: []models.WorkItemLinkWire{
			{Target: &models.WorkItemReference{ID: 1}},
			{Rel: "System.LinkTypes.Hierarchy-Forward", Source: &models.WorkItemReference{ID: 1}, Target: &models.WorkItemReference{ID: 2}},
			{Source: &models.WorkItemReference{ID: 1}},
		},
	}

	ids, found := ResolveQuery(wire.QueryResult())
	if !found {
		t.Fatal("expected results")
	}
	if want := []int{1, 2}; !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}
