package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// canonicalTask is the stable form a task is serialized to before
// hashing. Field order is fixed by the struct definition and the
// dependency list is sorted, so semantically identical records hash
// identically no matter which side they came from or how their fields
// were ordered on the wire.
//
// Subtasks are excluded: children are tracked as their own records.
type canonicalTask struct {
	ID              string   `json:"id"`
	ParentTaskID    string   `json:"parentTaskId"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Status          Status   `json:"status"`
	Priority        Priority `json:"priority"`
	Dependencies    []string `json:"dependencies"`
	Position        int      `json:"position"`
	SubtaskPosition int      `json:"subtaskPosition"`
	AccountID       string   `json:"accountId"`
}

// HashTask returns the canonical content hash of a task: the SHA-256
// digest, hex encoded, of its canonical JSON form. A nil task hashes
// to the empty string, which the sync coordinator treats as "record
// absent on this side".
func HashTask(t *Task) string {
	if t == nil {
		return ""
	}
	deps := make([]string, len(t.Dependencies))
	copy(deps, t.Dependencies)
	sort.Strings(deps)

	canonical := canonicalTask{
		ID:              t.ID,
		ParentTaskID:    t.ParentTaskID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		Dependencies:    deps,
		Position:        t.Position,
		SubtaskPosition: t.SubtaskPosition,
		AccountID:       t.AccountID,
	}

	// Struct marshaling emits fields in declaration order; this cannot
	// fail for the field types above.
	data, err := json.Marshal(canonical)
	if err != nil {
		panic("schema: marshal canonical task: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
