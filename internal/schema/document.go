package schema

import "time"

// TaskDocument is the JSON document persisted by the local store. One
// document holds a project's full task collection plus metadata; the
// unit of consistency is the whole document.
//
// A freshly created document is `{}`, which decodes to zero tasks.
type TaskDocument struct {
	Tasks    []Task            `json:"tasks,omitempty"`
	Metadata *DocumentMetadata `json:"metadata,omitempty"`
}

// DocumentMetadata records bookkeeping about the document itself.
type DocumentMetadata struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch bumps the document's version and update timestamp, creating
// the metadata block on first write.
func (d *TaskDocument) Touch(now time.Time) {
	if d.Metadata == nil {
		d.Metadata = &DocumentMetadata{}
	}
	d.Metadata.Version++
	d.Metadata.UpdatedAt = now.UTC()
}
