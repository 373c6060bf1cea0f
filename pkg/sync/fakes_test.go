package sync

import (
	"context"
	stdsync "sync"

	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/fields"
	"github.com/agentstation/metasync/pkg/sanitize"
)

type customUpdate struct {
	SslID  int
	Values []certs.CustomFieldValue
}

type fakeSource struct {
	fields  []fields.SourceField
	certs   map[int][]certs.SourceCertificate // by sslTypeId
	details map[int]*certs.SourceDetail

	fieldsErr  error
	listErr    error
	detailErr  map[int]error
	updateErr  map[int]error
	listCalls  int
	updates    []customUpdate
	detailHits []int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		certs:     map[int][]certs.SourceCertificate{},
		details:   map[int]*certs.SourceDetail{},
		detailErr: map[int]error{},
		updateErr: map[int]error{},
	}
}

// add registers a certificate under profile with its detail.
func (s *fakeSource) add(profile int, d certs.SourceDetail) {
	s.certs[profile] = append(s.certs[profile], certs.SourceCertificate{
		SslID:        d.SslID,
		CommonName:   d.CommonName,
		SerialNumber: d.SerialNumber,
	})
	s.details[d.SslID] = &d
}

func (s *fakeSource) ListCustomFields(context.Context) ([]fields.SourceField, error) {
	return s.fields, s.fieldsErr
}

func (s *fakeSource) ListCertificates(_ context.Context, q certs.SourceQuery, position, size int) ([]certs.SourceCertificate, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	all := s.certs[q.SSLTypeID]
	start := min(position, len(all))
	end := min(start+size, len(all))
	return all[start:end], nil
}

func (s *fakeSource) CertificateDetail(_ context.Context, sslID int) (*certs.SourceDetail, error) {
	s.detailHits = append(s.detailHits, sslID)
	if err := s.detailErr[sslID]; err != nil {
		return nil, err
	}
	d, ok := s.details[sslID]
	if !ok {
		return nil, errors.NewNotFoundError("certificate", "")
	}
	return d, nil
}

func (s *fakeSource) UpdateCustomFields(_ context.Context, sslID int, values []certs.CustomFieldValue) error {
	if err := s.updateErr[sslID]; err != nil {
		return err
	}
	s.updates = append(s.updates, customUpdate{SslID: sslID, Values: values})
	return nil
}

type metadataUpdate struct {
	ID       int
	Metadata map[string]string
}

type fakeTarget struct {
	existing []fields.TargetField
	certs    []certs.TargetCertificate

	fieldsErr   error
	pageErr     map[int]error
	upsertErr   map[string]error
	updateErr   map[int]error
	upserts     []fields.TargetField
	updates     []metadataUpdate
	pagesServed []int
	nextID      int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		pageErr:   map[int]error{},
		upsertErr: map[string]error{},
		updateErr: map[int]error{},
		nextID:    500,
	}
}

func (t *fakeTarget) UpsertMetadataField(_ context.Context, f fields.TargetField) (int, error) {
	if err := t.upsertErr[f.Name]; err != nil {
		return 0, err
	}
	t.upserts = append(t.upserts, f)
	if f.ID != 0 {
		return f.ID, nil
	}
	t.nextID++
	return t.nextID, nil
}

func (t *fakeTarget) ListMetadataFields(context.Context) ([]fields.TargetField, error) {
	return t.existing, t.fieldsErr
}

func (t *fakeTarget) ListCertificates(_ context.Context, _ certs.TargetQuery, page, size int) ([]certs.TargetCertificate, error) {
	t.pagesServed = append(t.pagesServed, page)
	if err := t.pageErr[page]; err != nil {
		return nil, err
	}
	start := min((page-1)*size, len(t.certs))
	end := min(start+size, len(t.certs))
	return t.certs[start:end], nil
}

func (t *fakeTarget) UpdateMetadata(_ context.Context, id int, metadata map[string]string) error {
	if err := t.updateErr[id]; err != nil {
		return err
	}
	t.updates = append(t.updates, metadataUpdate{ID: id, Metadata: metadata})
	return nil
}

// writes counts every call that changes Keyfactor.
func (t *fakeTarget) writes() int {
	return len(t.upserts) + len(t.updates)
}

type memStore struct {
	mu      stdsync.Mutex
	entries []sanitize.Entry
	saved   []sanitize.Entry
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(context.Context) (*sanitize.Table, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return sanitize.NewTable(m.entries...)
}

func (m *memStore) Save(_ context.Context, t *sanitize.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = t.Entries()
	return nil
}
