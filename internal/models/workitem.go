package models

import "time"

// RelAttachedFile is the relation type of a file attachment.
const RelAttachedFile = "AttachedFile"

// WorkItem is a work item fetched with $expand=relations.
type WorkItem struct {
	ID        int                    `json:"id"`
	Rev       int                    `json:"rev,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Relations []WorkItemRelation     `json:"relations,omitempty"`
}

// Title returns System.Title, or "" when the field was not returned.
func (w *WorkItem) Title() string {
	if w == nil || w.Fields == nil {
		return ""
	}
	title, _ := w.Fields["System.Title"].(string)
	return title
}

// WorkItemRelation links a work item to another work item, a hyperlink or
// an attachment. For attachments URL points at _apis/wit/attachments/{guid}.
type WorkItemRelation struct {
	Rel        string             `json:"rel"`
	URL        string             `json:"url"`
	Attributes RelationAttributes `json:"attributes"`
}

// RelationAttributes carries the attachment metadata of a relation.
// Name and AuthorizedDate are required for an attachment to be downloadable.
type RelationAttributes struct {
	Name                 string     `json:"name,omitempty"`
	AuthorizedDate       *time.Time `json:"authorizedDate,omitempty"`
	ResourceCreatedDate  *time.Time `json:"resourceCreatedDate,omitempty"`
	ResourceModifiedDate *time.Time `json:"resourceModifiedDate,omitempty"`
	ResourceSize         int64      `json:"resourceSize,omitempty"`
	RevisedDate          *time.Time `json:"revisedDate,omitempty"`
	ID                   int        `json:"id,omitempty"`
	Comment              string     `json:"comment,omitempty"`
}

// IsAttachment reports whether the relation is a file attachment.
func (r WorkItemRelation) IsAttachment() bool {
	return r.Rel == RelAttachedFile
}

// ConnectionData is the response of GET _apis/connectionData, used to
// verify that the credentials are accepted.
type ConnectionData struct {
	AuthenticatedUser *Identity `json:"authenticatedUser,omitempty"`
	AuthorizedUser    *Identity `json:"authorizedUser,omitempty"`
	InstanceID        string    `json:"instanceId,omitempty"`
	DeploymentType    string    `json:"deploymentType,omitempty"`
}

// Identity is the subset of an identity record witdl reads.
type Identity struct {
	ID                  string `json:"id"`
	ProviderDisplayName string `json:"providerDisplayName,omitempty"`
	IsActive            bool   `json:"isActive,omitempty"`
}
