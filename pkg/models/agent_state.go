package models

import (
	"encoding/json"
	"fmt"
)

// Top-level fields of the agent state document. Patches address these names.
const (
	StateFieldDashboardConfig         = "dashboard_config"
	StateFieldDefaultDataFrame        = "default_dataframe"
	StateFieldDefaultFigure           = "default_figure"
	StateFieldSelectedSQLDependencyID = "selected_sql_dependency_id"
)

// DashboardState is the agent state document shared between the UI and the
// conversational layer. This module only ever updates individual fields.
type DashboardState struct {
	DashboardConfig         *DashboardConfig `json:"dashboard_config,omitempty"`
	DefaultDataFrame        *DataFrame       `json:"default_dataframe,omitempty"`
	DefaultFigure           *Figure          `json:"default_figure,omitempty"`
	SelectedSQLDependencyID *string          `json:"selected_sql_dependency_id"`
}

// StatePatch is a field-scoped update of a DashboardState. Only the fields
// present in the patch are written; every other field keeps its value.
// A field mapped to JSON null clears it.
type StatePatch map[string]json.RawMessage

// Set adds a field to the patch, encoding value as JSON.
func (p StatePatch) Set(field string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", field, err)
	}
	p[field] = data
	return nil
}

// SelectedDependencyPatch builds the patch written whenever the dependency
// selection changes. A nil id clears the selection.
func SelectedDependencyPatch(id *string) StatePatch {
	patch := StatePatch{}
	if id == nil {
		patch[StateFieldSelectedSQLDependencyID] = json.RawMessage("null")
		return patch
	}
	data, _ := json.Marshal(*id)
	patch[StateFieldSelectedSQLDependencyID] = data
	return patch
}

// ApplyPatch merges patch into a copy of s and returns it. Unknown fields are
// rejected so a typo cannot silently drop an update.
func (s DashboardState) ApplyPatch(patch StatePatch) (DashboardState, error) {
	out := s
	for field, raw := range patch {
		var err error
		switch field {
		case StateFieldDashboardConfig:
			out.DashboardConfig = nil
			err = json.Unmarshal(raw, &out.DashboardConfig)
		case StateFieldDefaultDataFrame:
			out.DefaultDataFrame = nil
			err = json.Unmarshal(raw, &out.DefaultDataFrame)
		case StateFieldDefaultFigure:
			out.DefaultFigure = nil
			err = json.Unmarshal(raw, &out.DefaultFigure)
		case StateFieldSelectedSQLDependencyID:
			out.SelectedSQLDependencyID = nil
			err = json.Unmarshal(raw, &out.SelectedSQLDependencyID)
		default:
			return s, fmt.Errorf("unknown agent state field %q", field)
		}
		if err != nil {
			return s, fmt.Errorf("invalid value for %s: %w", field, err)
		}
	}
	return out, nil
}

// Fields splits the document into its top-level fields, the inverse of ApplyPatch.
func (s DashboardState) Fields() (StatePatch, error) {
	patch := StatePatch{}
	values := map[string]any{
		StateFieldDashboardConfig:         s.DashboardConfig,
		StateFieldDefaultDataFrame:        s.DefaultDataFrame,
		StateFieldDefaultFigure:           s.DefaultFigure,
		StateFieldSelectedSQLDependencyID: s.SelectedSQLDependencyID,
	}
	for field, value := range values {
		if err := patch.Set(field, value); err != nil {
			return nil, err
		}
	}
	return patch, nil
}
