package schema

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/logging"
)

// Target receives metadata field definitions.
type Target interface {
	// UpsertMetadataField creates the field when its ID is zero and updates
	// it otherwise, returning the identifier Keyfactor holds it under.
	UpsertMetadataField(ctx context.Context, field fields.TargetField) (int, error)
}

// PushResult summarizes a schema push.
type PushResult struct {
	Created int     `json:"created" yaml:"created"`
	Updated int     `json:"updated" yaml:"updated"`
	Failed  int     `json:"failed" yaml:"failed"`
	Errors  []error `json:"-" yaml:"-"`
}

// Push creates or updates one Keyfactor metadata field per unified field.
// Existing fields are matched by case-insensitive name and keep their
// identifier. A failing field is logged and counted; the rest still run.
// Each successfully pushed field has its TargetID set.
func Push(ctx context.Context, target Target, list []*fields.UnifiedField, existing []fields.TargetField) PushResult {
	logger := logging.FromContext(ctx)

	fold := cases.Fold()
	ids := make(map[string]int, len(existing))
	for _, tf := range existing {
		key := fold.String(tf.Name)
		if _, dup := ids[key]; !dup {
			ids[key] = tf.ID
		}
	}

	var result PushResult
	for _, uf := range list {
		key := fold.String(uf.TargetName)
		id, exists := ids[key]

		op := "create"
		if exists {
			op = "update"
		}

		assigned, err := target.UpsertMetadataField(ctx, ToTargetField(uf, id))
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, &errors.SchemaFieldError{Field: uf.TargetName, Operation: op, Err: err})
			logger.Warn().Err(err).Str("field", uf.TargetName).Str("operation", op).
				Msg("Failed to push metadata field")
			continue
		}
		if assigned == 0 {
			assigned = id
		}
		uf.TargetID = assigned
		ids[key] = assigned

		if exists {
			result.Updated++
		} else {
			result.Created++
		}
		logger.Debug().Str("field", uf.TargetName).Int("id", assigned).Str("operation", op).Msg("Pushed metadata field")
	}

	logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("Metadata field push complete")
	return result
}

// ToTargetField converts a unified field into a Keyfactor field definition.
func ToTargetField(uf *fields.UnifiedField, id int) fields.TargetField {
	tf := fields.TargetField{
		ID:            id,
		Name:          uf.TargetName,
		Description:   uf.Description,
		DataType:      int(uf.DataType),
		Hint:          uf.Hint,
		Validation:    uf.Validation,
		Enrollment:    uf.Enrollment,
		Message:       uf.Message,
		DefaultValue:  uf.DefaultValue,
		DisplayOrder:  uf.DisplayOrder,
		CaseSensitive: uf.CaseSensitive,
	}
	if len(uf.Options) > 0 {
		joined := strings.Join(uf.Options, ",")
		tf.Options = &joined
	}
	return tf
}
