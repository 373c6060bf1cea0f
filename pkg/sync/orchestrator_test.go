package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metasync/internal/utils/ptr"
	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/logging"
	"github.com/agentstation/metasync/pkg/sanitize"
	"github.com/agentstation/metasync/pkg/schema"
)

const profile = 10

var (
	manualNotBefore = schema.Declaration{SourceName: "notBefore", TargetName: "NotBefore", DataType: fields.Date}
	customDept      = schema.Declaration{SourceName: "Department", TargetName: "dept"}
)

type fixture struct {
	source *fakeSource
	target *fakeTarget
	store  *memStore
}

// newFixture holds one certificate in each system sharing serial 00A1 / a1.
func newFixture() *fixture {
	f := &fixture{source: newFakeSource(), target: newFakeTarget(), store: &memStore{}}
	f.source.fields = []fields.SourceField{{ID: 1, Name: "Department", Input: fields.SourceInput{Type: fields.TextSingleLine}}}
	f.source.add(profile, certs.SourceDetail{
		SslID:              42,
		SerialNumber:       "a1",
		CommonName:         "www.example.com",
		CertificateDetails: &certs.CertificateDetails{NotBefore: "2024-03-04"},
		CustomFields:       []certs.CustomFieldValue{{Name: "Department", Value: "ops"}},
	})
	f.target.certs = []certs.TargetCertificate{{
		ID:           7,
		SerialNumber: "00A1",
		IssuerDN:     "CN=Sectigo RSA",
		Metadata:     map[string]string{"dept": "security", "NotBefore": "1/2/2020 1:00:00 AM"},
	}}
	return f
}

func (f *fixture) orchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{
		WithSSLTypeIDs(profile),
		WithDeclarations([]schema.Declaration{customDept}, []schema.Declaration{manualNotBefore}),
	}
	o, err := New(f.source, f.target, f.store, append(base, opts...)...)
	require.NoError(t, err)
	return o
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logging.WithLogger(context.Background(), logging.NewNopLogger())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("SCtoKF")
	require.NoError(t, err)
	assert.Equal(t, SourceToTarget, d)

	d, err = ParseDirection(" kftosc ")
	require.NoError(t, err)
	assert.Equal(t, TargetToSource, d)

	_, err = ParseDirection("both")
	assert.True(t, errors.IsValidationError(err))

	assert.Equal(t, []fields.Origin{fields.Custom}, TargetToSource.Origins())
	assert.Len(t, SourceToTarget.Origins(), 2)
}

func TestNewInvalidOptions(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "direction", opts: []Option{WithDirection("both"), WithSSLTypeIDs(1)}},
		{name: "profiles", opts: []Option{WithDirection(SourceToTarget)}},
		{name: "page size", opts: []Option{WithDirection(SourceToTarget), WithSSLTypeIDs(1), WithPageSizes(0, 25)}},
		{name: "date pattern", opts: []Option{WithDirection(SourceToTarget), WithSSLTypeIDs(1), WithDateFormat("yyyy-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(f.source, f.target, f.store, tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
			assert.Equal(t, errors.StageInit, errors.FatalStage(err))
		})
	}
}

func TestRunSourceToTarget(t *testing.T) {
	f := newFixture()
	result, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
	require.NoError(t, err)

	require.Len(t, f.target.updates, 1)
	assert.Equal(t, 7, f.target.updates[0].ID)
	assert.Equal(t, map[string]string{"NotBefore": "2024-03-04", "dept": "ops"}, f.target.updates[0].Metadata)
	assert.Empty(t, f.source.updates)

	assert.True(t, result.Succeeded())
	assert.Equal(t, StateTerminal, result.State)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []string{"00A1"}, result.Updated)
	assert.Empty(t, result.Partial)
	assert.Empty(t, result.Unmatched)
	assert.Equal(t, 2, result.Fields)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 2, result.Schema.Created)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.FinishedAt.IsZero())
}

func TestRunTargetToSource(t *testing.T) {
	f := newFixture()
	result, err := f.orchestrator(t, WithDirection(TargetToSource)).Run(testContext(t))
	require.NoError(t, err)

	require.Len(t, f.source.updates, 1)
	assert.Equal(t, 42, f.source.updates[0].SslID)
	assert.Equal(t, []certs.CustomFieldValue{{Name: "Department", Value: "security"}}, f.source.updates[0].Values)
	assert.Empty(t, f.target.updates)
	assert.Equal(t, []string{"00A1"}, result.Updated)
	assert.Equal(t, 1, result.Written)
}

func TestRunUnresolvedCharacterBlocksWrites(t *testing.T) {
	f := newFixture()
	f.store.entries = []sanitize.Entry{{Character: "$"}}

	result, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, errors.StageSanitize, errors.FatalStage(err))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	assert.Zero(t, f.target.writes())
	assert.Empty(t, f.source.updates)
	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, StateAborted, result.State)
	assert.False(t, result.Succeeded())
}

func TestRunDiscoversBannedCharacters(t *testing.T) {
	f := newFixture()
	f.store.entries = []sanitize.Entry{{Character: " ", Replacement: ptr.To("_")}}
	custom := schema.Declaration{SourceName: "Cost Center", TargetName: "Cost Center#"}

	o, err := New(f.source, f.target, f.store,
		WithDirection(SourceToTarget),
		WithSSLTypeIDs(profile),
		WithDeclarations([]schema.Declaration{custom}, nil))
	require.NoError(t, err)

	result, err := o.Run(testContext(t))
	require.Error(t, err)

	var unresolved *errors.UnresolvedCharactersError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"#"}, unresolved.Characters)
	assert.Equal(t, []string{"Cost Center#"}, unresolved.Fields)

	require.Len(t, f.store.saved, 2)
	assert.Equal(t, "#", f.store.saved[1].Character)
	assert.Nil(t, f.store.saved[1].Replacement)
	assert.Equal(t, []string{"#"}, result.Added)
	assert.Zero(t, f.target.writes())
}

func TestRunSanitizesTargetNames(t *testing.T) {
	f := newFixture()
	f.store.entries = []sanitize.Entry{{Character: " ", Replacement: ptr.To("_")}}
	f.target.existing = []fields.TargetField{{ID: 3, Name: "cost_center"}}
	custom := schema.Declaration{SourceName: "Cost Center", TargetName: "Cost Center"}
	f.source.details[42].CustomFields = append(f.source.details[42].CustomFields,
		certs.CustomFieldValue{Name: "cost center", Value: "42-A"})

	o, err := New(f.source, f.target, f.store,
		WithDirection(SourceToTarget),
		WithSSLTypeIDs(profile),
		WithDeclarations([]schema.Declaration{custom}, nil))
	require.NoError(t, err)

	result, err := o.Run(testContext(t))
	require.NoError(t, err)

	require.Len(t, f.target.upserts, 1)
	assert.Equal(t, "Cost_Center", f.target.upserts[0].Name)
	assert.Equal(t, 3, f.target.upserts[0].ID)
	assert.Equal(t, 1, result.Schema.Updated)
	require.Len(t, f.target.updates, 1)
	assert.Equal(t, map[string]string{"Cost_Center": "42-A"}, f.target.updates[0].Metadata)
}

func TestRunDateTranscoding(t *testing.T) {
	f := newFixture()
	date := schema.Declaration{SourceName: "Expiry Review", TargetName: "ReviewDate", DataType: fields.Date}
	f.target.certs[0].Metadata = map[string]string{"dept": "sec", "ReviewDate": "3/4/2024 1:02:03 PM"}
	f.target.certs = append(f.target.certs, certs.TargetCertificate{
		ID: 8, SerialNumber: "B2", Metadata: map[string]string{"dept": "ops", "ReviewDate": "2024-03-04"},
	})
	f.source.add(profile, certs.SourceDetail{SslID: 43, SerialNumber: "b2"})

	o, err := New(f.source, f.target, f.store,
		WithDirection(TargetToSource),
		WithSSLTypeIDs(profile),
		WithDeclarations([]schema.Declaration{customDept, date}, nil))
	require.NoError(t, err)

	result, err := o.Run(testContext(t))
	require.NoError(t, err)

	require.Len(t, f.source.updates, 2)
	assert.Equal(t, []certs.CustomFieldValue{
		{Name: "Department", Value: "sec"},
		{Name: "Expiry Review", Value: "2024-03-04"},
	}, f.source.updates[0].Values)
	assert.Equal(t, []certs.CustomFieldValue{{Name: "Department", Value: "ops"}}, f.source.updates[1].Values)

	assert.Equal(t, []string{"00A1"}, result.Updated)
	assert.Equal(t, []string{"B2"}, result.Partial)
	require.Len(t, result.Failures["B2"], 1)
	assert.Contains(t, result.Failures["B2"][0], "ReviewDate")
}

func TestRunRecordOutcomes(t *testing.T) {
	f := newFixture()
	// unmatched, detail failure, commit failure, all-zero serial
	f.target.certs = append(f.target.certs,
		certs.TargetCertificate{ID: 8, SerialNumber: "FF"},
		certs.TargetCertificate{ID: 9, SerialNumber: "0B2", Metadata: map[string]string{}},
		certs.TargetCertificate{ID: 10, SerialNumber: "C3", Metadata: map[string]string{}},
		certs.TargetCertificate{ID: 11, SerialNumber: "000", Metadata: map[string]string{}},
	)
	f.source.add(profile, certs.SourceDetail{SslID: 43, SerialNumber: "B2"})
	f.source.add(profile, certs.SourceDetail{SslID: 44, SerialNumber: "c3"})
	f.source.detailErr[43] = errors.NewAPIError("sectigo", 500, "down")
	f.target.updateErr[10] = errors.NewAPIError("keyfactor", 500, "down")

	result, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, []string{"FF", "000"}, result.Unmatched)
	assert.Equal(t, []string{"0B2", "C3"}, result.Partial)
	assert.Equal(t, []string{"00A1"}, result.Updated)
	assert.Equal(t, 1, result.WithoutCustomFields)
	assert.True(t, result.HasIssues())
	assert.Contains(t, result.Failures["0B2"][0], "detail")
	assert.Contains(t, result.Failures["C3"][0], "commit")
}

func TestRunSchemaAbsent(t *testing.T) {
	f := newFixture()
	f.target.certs[0].Metadata = map[string]string{"other": "x"}

	result, err := f.orchestrator(t, WithDirection(TargetToSource)).Run(testContext(t))
	require.NoError(t, err)

	assert.Empty(t, f.source.updates)
	assert.Equal(t, []string{"00A1"}, result.SchemaAbsent)
	assert.Equal(t, 1, result.WithoutCustomFields)
	assert.False(t, result.HasIssues())
}

func TestRunUnknownManualPath(t *testing.T) {
	f := newFixture()
	bad := schema.Declaration{SourceName: "certificateDetails.nope", TargetName: "Nope"}

	o, err := New(f.source, f.target, f.store,
		WithDirection(SourceToTarget),
		WithSSLTypeIDs(profile),
		WithDeclarations([]schema.Declaration{customDept}, []schema.Declaration{bad}))
	require.NoError(t, err)

	result, err := o.Run(testContext(t))
	require.NoError(t, err)

	require.Len(t, f.target.updates, 1)
	assert.Equal(t, map[string]string{"dept": "ops"}, f.target.updates[0].Metadata)
	assert.Equal(t, []string{"00A1"}, result.Partial)
}

func TestRunSchemaPushFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.target.upsertErr["dept"] = errors.NewAPIError("keyfactor", 400, "rejected")

	result, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Schema.Failed)
	assert.Equal(t, 1, result.Schema.Created)
	assert.Len(t, f.target.updates, 1)
}

func TestRunSnapshotFailures(t *testing.T) {
	t.Run("source schema", func(t *testing.T) {
		f := newFixture()
		f.source.fieldsErr = errors.NewAPIError("sectigo", 401, "bad login")
		_, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
		assert.Equal(t, errors.StageSnapshot, errors.FatalStage(err))
		assert.ErrorIs(t, err, errors.ErrCredentialsInvalid)
		assert.Zero(t, f.target.writes())
	})

	t.Run("target schema", func(t *testing.T) {
		f := newFixture()
		f.target.fieldsErr = errors.NewAPIError("keyfactor", 503, "down")
		_, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
		assert.Equal(t, errors.StageSnapshot, errors.FatalStage(err))
	})

	t.Run("candidates", func(t *testing.T) {
		f := newFixture()
		f.source.listErr = errors.NewAPIError("sectigo", 503, "down")
		_, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
		assert.Equal(t, errors.StageSnapshot, errors.FatalStage(err))
		assert.Empty(t, f.target.updates)
	})

	t.Run("second page", func(t *testing.T) {
		f := newFixture()
		f.target.certs = append(f.target.certs, certs.TargetCertificate{ID: 8, SerialNumber: "FF"})
		f.target.pageErr[2] = errors.NewAPIError("keyfactor", 503, "down")

		result, err := f.orchestrator(t, WithDirection(SourceToTarget), WithPageSizes(1, 25)).Run(testContext(t))
		assert.Equal(t, errors.StageSnapshot, errors.FatalStage(err))
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Pages)
		assert.Equal(t, StateAborted, result.State)
	})

	t.Run("table load", func(t *testing.T) {
		f := newFixture()
		f.store.loadErr = errors.NewIOError("read", "bannedcharacters.json", errors.New("denied"))
		_, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
		assert.Equal(t, errors.StagePersist, errors.FatalStage(err))
	})

	t.Run("table save", func(t *testing.T) {
		f := newFixture()
		f.store.saveErr = errors.NewIOError("write", "bannedcharacters.json", errors.New("denied"))
		_, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(testContext(t))
		assert.Equal(t, errors.StagePersist, errors.FatalStage(err))
		assert.Zero(t, f.target.writes())
	})
}

func TestRunPagination(t *testing.T) {
	f := newFixture()
	for i := range 4 {
		f.target.certs = append(f.target.certs, certs.TargetCertificate{ID: 100 + i, SerialNumber: "F" + string(rune('0'+i))})
	}

	result, err := f.orchestrator(t, WithDirection(SourceToTarget), WithPageSizes(2, 1)).Run(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, f.target.pagesServed)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 5, result.Processed)
	// one Sectigo certificate with page size 1: a full page then an empty one
	assert.Equal(t, 2, f.source.listCalls)
}

func TestRunMultipleProfilesAndDuplicates(t *testing.T) {
	f := newFixture()
	f.source.add(11, certs.SourceDetail{SslID: 99, SerialNumber: "0a1"})

	result, err := f.orchestrator(t, WithDirection(SourceToTarget), WithSSLTypeIDs(profile, 11)).Run(testContext(t))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Candidates)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "a1", result.Duplicates[0].Key)
	assert.Equal(t, 2, result.Duplicates[0].Count)
	assert.Equal(t, []int{42}, f.source.detailHits)
}

func TestPrepare(t *testing.T) {
	f := newFixture()
	f.store.entries = []sanitize.Entry{{Character: "$"}}

	plan, err := f.orchestrator(t, WithDirection(SourceToTarget)).Prepare(testContext(t))
	require.NoError(t, err)
	assert.True(t, plan.Blocked())
	assert.Len(t, plan.Fields, 2)
	assert.Zero(t, f.store.saves)
	assert.Zero(t, f.target.writes())
}

func TestRunLogsBanners(t *testing.T) {
	f := newFixture()
	logger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), logger.Logger)

	result, err := f.orchestrator(t, WithDirection(SourceToTarget)).Run(ctx)
	require.NoError(t, err)
	assert.True(t, logger.Contains("[START] metasync run"))
	assert.True(t, logger.Contains("[END] metasync run"))
	assert.True(t, logger.Contains(result.RunID))
}
