package planner

import (
	"fmt"
	"strings"

	"mindplanner/internal/model"
)

// GroupKey identifies a set of activities edited or deleted together. A
// recurrence group id takes precedence over a preset id.
type GroupKey struct {
	RecurrenceGroupID *string
	UserPresetID      *uint
}

// KeyOf returns the group membership of a.
func KeyOf(a model.Activity) GroupKey {
	return GroupKey{RecurrenceGroupID: a.RecurrenceGroupID, UserPresetID: a.UserPresetID}
}

func (k GroupKey) IsZero() bool {
	return k.RecurrenceGroupID == nil && k.UserPresetID == nil
}

// Matches reports whether a belongs to the group.
func (k GroupKey) Matches(a model.Activity) bool {
	switch {
	case k.RecurrenceGroupID != nil:
		return a.RecurrenceGroupID != nil && *a.RecurrenceGroupID == *k.RecurrenceGroupID
	case k.UserPresetID != nil:
		return a.UserPresetID != nil && *a.UserPresetID == *k.UserPresetID
	default:
		return false
	}
}

// ResolveGroupIDs returns the ids of userID's rows that belong to key, in row
// order. A zero key resolves to nothing.
func ResolveGroupIDs(userID uint, key GroupKey, rows []model.Activity) []uint {
	if key.IsZero() {
		return nil
	}
	var ids []uint
	for _, row := range rows {
		if row.UserID == userID && key.Matches(row) {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

// Scope picks how far an edit or delete reaches.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeGroup  Scope = "group"
)

func ParseScope(raw string) (Scope, error) {
	switch s := Scope(strings.ToLower(strings.TrimSpace(raw))); s {
	case "", ScopeSingle:
		return ScopeSingle, nil
	case ScopeGroup, "all":
		return ScopeGroup, nil
	default:
		return "", fmt.Errorf("unknown scope %q", raw)
	}
}

// NeedsScopeChoice reports whether the user must be asked to pick between
// changing one occurrence and the whole group before mutating a.
func NeedsScopeChoice(a model.Activity) bool {
	return a.InGroup()
}
