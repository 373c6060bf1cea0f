package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metasync/internal/utils/ptr"
	pkgerrors "github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/logging"
)

func sourceFields() []fields.SourceField {
	return []fields.SourceField{
		{ID: 1, Name: "Department", State: "ENABLED", Input: fields.SourceInput{Type: fields.TextSingleLine}},
		{ID: 2, Name: "Notes", State: "ENABLED", Input: fields.SourceInput{Type: fields.TextMultiLine}},
		{ID: 3, Name: "Contact", State: "ENABLED", Mandatories: []string{"ENROLLMENT", "API"}, Input: fields.SourceInput{Type: fields.EmailInput}},
		{ID: 4, Name: "Budget", State: "ENABLED", Input: fields.SourceInput{Type: fields.Number}},
		{ID: 5, Name: "Tier", State: "ENABLED", Input: fields.SourceInput{Type: fields.TextOption, Options: []string{"Gold", "Silver"}}},
		{ID: 6, Name: "Review Date", State: "ENABLED", Input: fields.SourceInput{Type: fields.DateInput}},
		{ID: 7, Name: "Legacy", State: "disabled", Input: fields.SourceInput{Type: fields.TextSingleLine}},
		{ID: 8, Name: "Mystery", State: "ENABLED", Input: fields.SourceInput{Type: "CHECKBOX"}},
	}
}

func TestFromSourceFields(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	list := FromSourceFields(ctx, sourceFields(), false)
	require.Len(t, list, 6)

	byName := map[string]*fields.UnifiedField{}
	for _, f := range list {
		byName[f.SourceName] = f
		assert.Equal(t, fields.Custom, f.Origin)
		assert.Equal(t, f.SourceName, f.TargetName)
		assert.Equal(t, f.SourceName, f.Description)
	}

	dept := byName["Department"]
	assert.Equal(t, fields.String, dept.DataType)
	assert.Equal(t, ".*", ptr.Deref(dept.Validation))
	assert.Equal(t, "Please enter valid data.", ptr.Deref(dept.Message))
	assert.Equal(t, "TEXT_SINGLE_LINE", ptr.Deref(dept.Hint))

	assert.Equal(t, fields.BigText, byName["Notes"].DataType)
	assert.Nil(t, byName["Notes"].Validation)
	assert.Equal(t, fields.Email, byName["Contact"].DataType)
	assert.Equal(t, 1, byName["Contact"].Enrollment)
	assert.Equal(t, 0, dept.Enrollment)
	assert.Equal(t, fields.Integer, byName["Budget"].DataType)
	assert.Equal(t, fields.MultipleChoice, byName["Tier"].DataType)
	assert.Equal(t, []string{"Gold", "Silver"}, byName["Tier"].Options)
	assert.Equal(t, fields.Date, byName["Review Date"].DataType)

	assert.NotContains(t, byName, "Legacy")
	assert.NotContains(t, byName, "Mystery")
	assert.True(t, tl.Contains("unsupported input type"))
}

func TestFromSourceFieldsIncludeDisabled(t *testing.T) {
	logging.DisableLoggingForTest(t)
	list := FromSourceFields(context.Background(), sourceFields(), true)
	assert.Len(t, list, 7)
}

func TestUnify(t *testing.T) {
	logging.DisableLoggingForTest(t)
	ctx := context.Background()

	custom := []Declaration{{SourceName: "Department", TargetName: "dept", DataType: fields.String}}
	manual := []Declaration{{SourceName: "notBefore", TargetName: "NotBefore", DataType: fields.Date, Hint: "issued"}}

	t.Run("declared custom fields", func(t *testing.T) {
		list := Unify(ctx, sourceFields(), custom, manual, Options{})
		require.Len(t, list, 2)
		assert.Equal(t, "dept", list[0].TargetName)
		assert.Equal(t, fields.Custom, list[0].Origin)
		assert.Equal(t, "NotBefore", list[1].TargetName)
		assert.Equal(t, fields.Manual, list[1].Origin)
		assert.Equal(t, "issued", ptr.Deref(list[1].Hint))
	})

	t.Run("auto import ignores declared custom fields", func(t *testing.T) {
		list := Unify(ctx, sourceFields(), custom, manual, Options{ImportAll: true})
		require.Len(t, list, 7)
		assert.Equal(t, "Department", list[0].TargetName)
		assert.Equal(t, fields.Manual, list[6].Origin)
	})

	t.Run("no deduplication", func(t *testing.T) {
		dup := []Declaration{{SourceName: "Department", TargetName: "Department"}}
		list := Unify(ctx, sourceFields(), nil, dup, Options{ImportAll: true})
		var names []string
		for _, f := range list {
			if f.TargetName == "Department" {
				names = append(names, f.Origin.String())
			}
		}
		assert.Equal(t, []string{"Custom", "Manual"}, names)
	})
}

func TestFromDeclarationsDefaults(t *testing.T) {
	list := FromDeclarations([]Declaration{{SourceName: "owner"}}, fields.Manual)
	require.Len(t, list, 1)
	assert.Equal(t, "owner", list[0].TargetName)
	assert.Equal(t, "owner", list[0].Description)
	assert.Equal(t, fields.String, list[0].DataType)
	assert.Nil(t, list[0].Hint)
	assert.Nil(t, list[0].DefaultValue)
}

type fakeTarget struct {
	nextID int
	calls  []fields.TargetField
	fail   map[string]bool
}

func (f *fakeTarget) UpsertMetadataField(_ context.Context, tf fields.TargetField) (int, error) {
	f.calls = append(f.calls, tf)
	if f.fail[tf.Name] {
		return 0, errors.New("server rejected field")
	}
	if tf.ID != 0 {
		return tf.ID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func TestPush(t *testing.T) {
	logging.DisableLoggingForTest(t)

	list := []*fields.UnifiedField{
		{TargetName: "Dept", DataType: fields.String, Origin: fields.Custom},
		{TargetName: "Tier", DataType: fields.MultipleChoice, Options: []string{"Gold", "Silver"}, Origin: fields.Custom},
		{TargetName: "Broken", DataType: fields.String, Origin: fields.Custom},
		{TargetName: "NotBefore", DataType: fields.Date, Origin: fields.Manual},
	}
	existing := []fields.TargetField{{ID: 41, Name: "dept"}, {ID: 42, Name: "notbefore"}}
	target := &fakeTarget{nextID: 100, fail: map[string]bool{"Broken": true}}

	result := Push(context.Background(), target, list, existing)

	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	var sfe *pkgerrors.SchemaFieldError
	require.ErrorAs(t, result.Errors[0], &sfe)
	assert.Equal(t, "Broken", sfe.Field)
	assert.Equal(t, "create", sfe.Operation)

	assert.Equal(t, 41, list[0].TargetID, "update keeps the existing identifier")
	assert.Equal(t, 101, list[1].TargetID)
	assert.False(t, list[2].Pushed())
	assert.Equal(t, 42, list[3].TargetID)

	require.Len(t, target.calls, 4)
	assert.Equal(t, 41, target.calls[0].ID)
	assert.Equal(t, 0, target.calls[1].ID)
	assert.Equal(t, "Gold,Silver", ptr.Deref(target.calls[1].Options))
	assert.Equal(t, int(fields.MultipleChoice), target.calls[1].DataType)
}

func TestPushSameNameTwice(t *testing.T) {
	logging.DisableLoggingForTest(t)

	list := []*fields.UnifiedField{
		{TargetName: "Owner", Origin: fields.Custom},
		{TargetName: "owner", Origin: fields.Manual},
	}
	target := &fakeTarget{}
	result := Push(context.Background(), target, list, nil)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, list[0].TargetID, list[1].TargetID)
}

func TestToTargetField(t *testing.T) {
	uf := &fields.UnifiedField{
		TargetName:    "Review",
		Description:   "Review date",
		DataType:      fields.Date,
		Hint:          ptr.To("DATE"),
		Enrollment:    1,
		DisplayOrder:  3,
		CaseSensitive: true,
	}
	tf := ToTargetField(uf, 9)
	assert.Equal(t, 9, tf.ID)
	assert.Equal(t, "Review", tf.Name)
	assert.Equal(t, 3, tf.DataType)
	assert.Equal(t, "DATE", ptr.Deref(tf.Hint))
	assert.Nil(t, tf.Options)
	assert.Equal(t, 1, tf.Enrollment)
	assert.True(t, tf.CaseSensitive)
}
