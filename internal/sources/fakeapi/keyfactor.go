package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/fields"
)

// revokedState is the Keyfactor CertState of a revoked certificate.
const revokedState = 2

// Keyfactor emulates the Keyfactor Command endpoints metasync uses.
type Keyfactor struct {
	recorder

	Username string
	Password string

	// FailFields makes writes of the named metadata fields fail with 500.
	FailFields map[string]bool
	// FailMetadata makes metadata updates of the given certificate IDs fail with 500.
	FailMetadata map[int]bool
	// FailList makes certificate listing fail with 503.
	FailList bool

	mu     sync.Mutex
	fields []fields.TargetField
	certs  []certs.TargetCertificate
	nextID int
}

// NewKeyfactor returns an empty server accepting the given credentials.
func NewKeyfactor(username, password string) *Keyfactor {
	return &Keyfactor{
		Username:     username,
		Password:     password,
		FailFields:   map[string]bool{},
		FailMetadata: map[int]bool{},
		nextID:       1000,
	}
}

// AddField seeds a metadata field definition.
func (k *Keyfactor) AddField(f fields.TargetField) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.fields = append(k.fields, f)
}

// AddCertificate seeds a certificate.
func (k *Keyfactor) AddCertificate(c certs.TargetCertificate) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	k.certs = append(k.certs, c)
}

// Fields returns the current metadata field definitions.
func (k *Keyfactor) Fields() []fields.TargetField {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]fields.TargetField(nil), k.fields...)
}

// Certificate returns a copy of the certificate with the given ID.
func (k *Keyfactor) Certificate(id int) (certs.TargetCertificate, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, c := range k.certs {
		if c.ID == id {
			c.Metadata = cloneMap(c.Metadata)
			return c, true
		}
	}
	return certs.TargetCertificate{}, false
}

// Handler returns the HTTP handler serving the API.
func (k *Keyfactor) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(k.middleware, k.authenticate)
	r.Get("/MetadataFields", k.listFields)
	r.Post("/MetadataFields", k.writeField)
	r.Put("/MetadataFields", k.writeField)
	r.Get("/Certificates", k.listCertificates)
	r.Put("/Certificates/Metadata", k.updateMetadata)
	return r
}

func (k *Keyfactor) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != k.Username || pass != k.Password {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get(constants.RequestedWithHeader) != constants.RequestedWithValue {
			http.Error(w, "missing "+constants.RequestedWithHeader, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (k *Keyfactor) listFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, k.Fields())
}

func (k *Keyfactor) writeField(w http.ResponseWriter, r *http.Request) {
	var f fields.TargetField
	if !readJSON(w, r, &f) {
		return
	}
	if k.FailFields[f.Name] {
		http.Error(w, "field rejected", http.StatusInternalServerError)
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if r.Method == http.MethodPost {
		for _, existing := range k.fields {
			if strings.EqualFold(existing.Name, f.Name) {
				http.Error(w, "metadata field already exists", http.StatusConflict)
				return
			}
		}
		k.nextID++
		f.ID = k.nextID
		k.fields = append(k.fields, f)
		writeJSON(w, http.StatusOK, f)
		return
	}

	for i, existing := range k.fields {
		if existing.ID == f.ID {
			k.fields[i] = f
			writeJSON(w, http.StatusOK, f)
			return
		}
	}
	http.Error(w, "metadata field not found", http.StatusNotFound)
}

func (k *Keyfactor) listCertificates(w http.ResponseWriter, r *http.Request) {
	if k.FailList {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("PageReturned"))
	size, _ := strconv.Atoi(q.Get("ReturnLimit"))
	if page < 1 || size < 1 {
		http.Error(w, "invalid paging", http.StatusBadRequest)
		return
	}
	term := strings.ToLower(quotedTerm(q.Get("QueryString")))
	includeRevoked := q.Get("IncludeRevoked") == "true"
	withMetadata := q.Get("includeMetadata") == "true"

	k.mu.Lock()
	var matched []certs.TargetCertificate
	for _, c := range k.certs {
		if !strings.Contains(strings.ToLower(c.IssuerDN), term) {
			continue
		}
		if c.CertState == revokedState && !includeRevoked {
			continue
		}
		c.Metadata = cloneMap(c.Metadata)
		if !withMetadata {
			c.Metadata = nil
		}
		matched = append(matched, c)
	}
	k.mu.Unlock()

	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+size, len(matched))
	writeJSON(w, http.StatusOK, append([]certs.TargetCertificate{}, matched[start:end]...))
}

type metadataUpdate struct {
	ID       int               `json:"Id"`
	Metadata map[string]string `json:"Metadata"`
}

func (k *Keyfactor) updateMetadata(w http.ResponseWriter, r *http.Request) {
	var body metadataUpdate
	if !readJSON(w, r, &body) {
		return
	}
	if k.FailMetadata[body.ID] {
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.certs {
		if k.certs[i].ID == body.ID {
			for name, value := range body.Metadata {
				k.certs[i].Metadata[name] = value
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, "certificate not found", http.StatusNotFound)
}

// quotedTerm extracts the first double-quoted string of a query.
func quotedTerm(query string) string {
	start := strings.IndexByte(query, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(query[start+1:], '"')
	if end < 0 {
		return query[start+1:]
	}
	return query[start+1 : start+1+end]
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
