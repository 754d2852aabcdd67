package attachments

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rescale/witdl/internal/models"
)

// Policy chooses which of a work item's attachments are downloaded.
type Policy int

const (
	// PolicyAll downloads every attachment, most recent first.
	PolicyAll Policy = iota
	// PolicyLatest downloads only the most recently authorized attachment.
	PolicyLatest
)

// String returns the phrase used in progress lines.
func (p Policy) String() string {
	switch p {
	case PolicyLatest:
		return "the latest attachment"
	default:
		return "all attachments"
	}
}

// SelectAttachments filters relations down to well-formed file attachments,
// orders them by authorization time (newest first) and applies policy.
//
// A relation needs both a name and an authorized date; anything else is
// skipped silently. Attachments sharing a timestamp keep their relation
// order. The result is nil when nothing qualifies.
func SelectAttachments(relations []models.WorkItemRelation, policy Policy) []models.WorkItemRelation {
	selected := make([]models.WorkItemRelation, 0, len(relations))
	for _, rel := range relations {
		if !rel.IsAttachment() || !isComplete(rel) {
			continue
		}
		selected = append(selected, rel)
	}

	if len(selected) == 0 {
		return nil
	}

	slices.SortStableFunc(selected, func(a, b models.WorkItemRelation) int {
		return b.Attributes.AuthorizedDate.Compare(*a.Attributes.AuthorizedDate)
	})

	if policy == PolicyLatest {
		return selected[:1]
	}
	return selected
}

// CountAttachments returns how many relations are file attachments,
// well-formed or not.
func CountAttachments(relations []models.WorkItemRelation) int {
	n := 0
	for _, rel := range relations {
		if rel.IsAttachment() {
			n++
		}
	}
	return n
}

// HasFileAttachments reports whether any relation is a file attachment.
func HasFileAttachments(relations []models.WorkItemRelation) bool {
	return CountAttachments(relations) > 0
}

func isComplete(rel models.WorkItemRelation) bool {
	return rel.Attributes.Name != "" && rel.Attributes.AuthorizedDate != nil
}

// ContentID derives the attachment id used to fetch content from a
// relation URL: the segment after the last '/', without query or fragment.
func ContentID(locator string) string {
	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	return locator[strings.LastIndex(locator, "/")+1:]
}

// describe is used in log fields.
func describe(rel models.WorkItemRelation) string {
	if rel.Attributes.AuthorizedDate == nil {
		return rel.Attributes.Name
	}
	return fmt.Sprintf("%s@%s", rel.Attributes.Name, rel.Attributes.AuthorizedDate.UTC().Format("2006-01-02T15:04:05Z"))
}
