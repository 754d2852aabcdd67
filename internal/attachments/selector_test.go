package attachments

import (
	"slices"
	"testing"
	"time"

	"github.com/rescale/witdl/internal/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	t := base.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func file(name string, authorized *time.Time) models.WorkItemRelation {
	return models.WorkItemRelation{
		Rel: models.RelAttachedFile,
		URL: "https://dev.azure.com/org/_apis/wit/attachments/" + name + "-guid",
		Attributes: models.RelationAttributes{
			Name:           name,
			AuthorizedDate: authorized,
		},
	}
}

func names(rels []models.WorkItemRelation) []string {
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.Attributes.Name)
	}
	return out
}

func TestSelectAttachments(t *testing.T) {
	link := models.WorkItemRelation{
		Rel: "System.LinkTypes.Related",
		URL: "https://dev.azure.com/org/_apis/wit/workItems/9",
		Attributes: models.RelationAttributes{
			Name:           "Related",
			AuthorizedDate: at(100),
		},
	}

	tests := []struct {
		name      string
		relations []models.WorkItemRelation
		policy    Policy
		want      []string
	}{
		{"no relations", nil, PolicyAll, nil},
		{"no relations latest", nil, PolicyLatest, nil},
		{
			"all newest first",
			[]models.WorkItemRelation{file("a.txt", at(1)), file("c.txt", at(3)), file("b.txt", at(2))},
			PolicyAll,
			[]string{"c.txt", "b.txt", "a.txt"},
		},
		{
			"latest picks newest",
			[]models.WorkItemRelation{file("a.txt", at(1)), file("b.txt", at(2))},
			PolicyLatest,
			[]string{"b.txt"},
		},
		{
			"non-file relations ignored",
			[]models.WorkItemRelation{link, file("a.txt", at(1))},
			PolicyLatest,
			[]string{"a.txt"},
		},
		{
			"only non-file relations",
			[]models.WorkItemRelation{link},
			PolicyAll,
			nil,
		},
		{
			"missing date skipped",
			[]models.WorkItemRelation{file("a.txt", nil), file("b.txt", at(1))},
			PolicyAll,
			[]string{"b.txt"},
		},
		{
			"missing name skipped",
			[]models.WorkItemRelation{file("", at(5)), file("b.txt", at(1))},
			PolicyAll,
			[]string{"b.txt"},
		},
		{
			"blank name kept",
			[]models.WorkItemRelation{file("  ", at(6)), file("b.txt", at(1))},
			PolicyAll,
			[]string{"  ", "b.txt"},
		},
		{
			"all malformed",
			[]models.WorkItemRelation{file("", at(5)), file("a.txt", nil)},
			PolicyLatest,
			nil,
		},
		{
			"ties keep relation order",
			[]models.WorkItemRelation{file("first.txt", at(1)), file("second.txt", at(1)), file("old.txt", at(0))},
			PolicyAll,
			[]string{"first.txt", "second.txt", "old.txt"},
		},
		{
			"latest tie takes first",
			[]models.WorkItemRelation{file("first.txt", at(1)), file("second.txt", at(1))},
			PolicyLatest,
			[]string{"first.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectAttachments(tt.relations, tt.policy)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", names(got))
				}
				return
			}
			if !slices.Equal(names(got), tt.want) {
				t.Errorf("got %v, want %v", names(got), tt.want)
			}
		})
	}
}

func TestSelectAttachments_OrderIndependent(t *testing.T) {
	a, b, c := file("a.txt", at(1)), file("b.txt", at(2)), file("c.txt", at(3))
	perms := [][]models.WorkItemRelation{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for _, p := range perms {
		latest := SelectAttachments(p, PolicyLatest)
		if len(latest) != 1 || latest[0].Attributes.Name != "c.txt" {
			t.Errorf("latest of %v = %v, want [c.txt]", names(p), names(latest))
		}
		all := SelectAttachments(p, PolicyAll)
		if want := []string{"c.txt", "b.txt", "a.txt"}; !slices.Equal(names(all), want) {
			t.Errorf("all of %v = %v, want %v", names(p), names(all), want)
		}
	}
}

func TestSelectAttachments_DoesNotMutateInput(t *testing.T) {
	in := []models.WorkItemRelation{file("a.txt", at(1)), file("b.txt", at(2))}
	SelectAttachments(in, PolicyAll)
	if in[0].Attributes.Name != "a.txt" || in[1].Attributes.Name != "b.txt" {
		t.Errorf("input reordered: %v", names(in))
	}
}

func TestCountAttachments(t *testing.T) {
	rels := []models.WorkItemRelation{
		file("a.txt", at(1)),
		file("", nil),
		{Rel: "Hyperlink", URL: "https://example.com"},
	}
	if got := CountAttachments(rels); got != 2 {
		t.Errorf("CountAttachments = %d, want 2", got)
	}
	if !HasFileAttachments(rels) {
		t.Error("HasFileAttachments = false")
	}
	if HasFileAttachments(rels[2:]) {
		t.Error("hyperlink counted as attachment")
	}
}

func TestContentID(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"https://dev.azure.com/org/_apis/wit/attachments/0f1e2d3c-4b5a", "0f1e2d3c-4b5a"},
		{"https://tfs.local/tfs/Coll/_apis/wit/attachments/abc?fileName=x.txt", "abc"},
		{"https://tfs.local/_apis/wit/attachments/abc#frag", "abc"},
		{"abc", "abc"},
		{"https://tfs.local/_apis/wit/attachments/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ContentID(tt.locator); got != tt.want {
			t.Errorf("ContentID(%q) = %q, want %q", tt.locator, got, tt.want)
		}
	}
}

func TestPolicyString(t *testing.T) {
	if got := PolicyLatest.String(); got != "the latest attachment" {
		t.Errorf("PolicyLatest = %q", got)
	}
	if got := PolicyAll.String(); got != "all attachments" {
		t.Errorf("PolicyAll = %q", got)
	}
}
