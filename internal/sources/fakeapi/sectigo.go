package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/agentstation/metasync/pkg/certs"
	"github.com/agentstation/metasync/pkg/fields"
)

// Sectigo emulates the Sectigo Certificate Manager endpoints metasync uses.
type Sectigo struct {
	recorder

	Login       string
	Password    string
	CustomerURI string

	// FailDetail makes detail fetches of the given sslIds fail with 500.
	FailDetail map[int]bool
	// FailUpdate makes custom field updates of the given sslIds fail with 500.
	FailUpdate map[int]bool
	// FailCustomFields makes the custom field listing fail with 503.
	FailCustomFields bool

	mu           sync.Mutex
	customFields []fields.SourceField
	certs        []certs.SourceDetail
}

// NewSectigo returns an empty server accepting the given credentials.
func NewSectigo(login, password, customerURI string) *Sectigo {
	return &Sectigo{
		Login:       login,
		Password:    password,
		CustomerURI: customerURI,
		FailDetail:  map[int]bool{},
		FailUpdate:  map[int]bool{},
	}
}

// AddCustomField seeds a custom field definition.
func (s *Sectigo) AddCustomField(f fields.SourceField) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customFields = append(s.customFields, f)
}

// AddCertificate seeds a certificate. Its profile is CertType.ID.
func (s *Sectigo) AddCertificate(d certs.SourceDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs = append(s.certs, d)
}

// Certificate returns a copy of the certificate with the given sslId.
func (s *Sectigo) Certificate(sslID int) (certs.SourceDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.certs {
		if d.SslID == sslID {
			d.CustomFields = append([]certs.CustomFieldValue(nil), d.CustomFields...)
			return d, true
		}
	}
	return certs.SourceDetail{}, false
}

// Handler returns the HTTP handler serving the API.
func (s *Sectigo) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.middleware, s.authenticate)
	r.Get("/api/customField/v2", s.listCustomFields)
	r.Get("/api/ssl/v1", s.listCertificates)
	r.Put("/api/ssl/v1", s.updateCustomFields)
	r.Get("/api/ssl/v1/{sslId}", s.certificateDetail)
	return r
}

func (s *Sectigo) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("login") != s.Login ||
			r.Header.Get("password") != s.Password ||
			r.Header.Get("customerUri") != s.CustomerURI {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Sectigo) listCustomFields(w http.ResponseWriter, _ *http.Request) {
	if s.FailCustomFields {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]fields.SourceField{}, s.customFields...))
}

func (s *Sectigo) listCertificates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	profile, err := strconv.Atoi(q.Get("sslTypeId"))
	if err != nil {
		http.Error(w, "sslTypeId is required", http.StatusBadRequest)
		return
	}
	position, _ := strconv.Atoi(q.Get("position"))
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size < 1 || position < 0 {
		http.Error(w, "invalid paging", http.StatusBadRequest)
		return
	}
	status := q.Get("status")

	s.mu.Lock()
	var matched []certs.SourceCertificate
	for _, d := range s.certs {
		if d.CertType.ID != profile {
			continue
		}
		if status != "" && !strings.EqualFold(d.Status, status) {
			continue
		}
		matched = append(matched, certs.SourceCertificate{
			SslID:                   d.SslID,
			CommonName:              d.CommonName,
			SubjectAlternativeNames: d.SubjectAlternativeNames,
			SerialNumber:            d.SerialNumber,
		})
	}
	s.mu.Unlock()

	start := min(position, len(matched))
	end := min(start+size, len(matched))
	writeJSON(w, http.StatusOK, append([]certs.SourceCertificate{}, matched[start:end]...))
}

func (s *Sectigo) certificateDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "sslId"))
	if err != nil {
		http.Error(w, "invalid sslId", http.StatusBadRequest)
		return
	}
	if s.FailDetail[id] {
		http.Error(w, "detail unavailable", http.StatusInternalServerError)
		return
	}
	d, ok := s.Certificate(id)
	if !ok {
		http.Error(w, "certificate not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type customFieldsUpdate struct {
	SslID        int                      `json:"sslId"`
	CustomFields []certs.CustomFieldValue `json:"customFields"`
}

func (s *Sectigo) updateCustomFields(w http.ResponseWriter, r *http.Request) {
	var body customFieldsUpdate
	if !readJSON(w, r, &body) {
		return
	}
	if s.FailUpdate[body.SslID] {
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.certs {
		if s.certs[i].SslID != body.SslID {
			continue
		}
		for _, v := range body.CustomFields {
			s.certs[i].CustomFields = setCustomField(s.certs[i].CustomFields, v)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Error(w, "certificate not found", http.StatusNotFound)
}

func setCustomField(list []certs.CustomFieldValue, v certs.CustomFieldValue) []certs.CustomFieldValue {
	for i := range list {
		if strings.EqualFold(list[i].Name, v.Name) {
			list[i].Value = v.Value
			return list
		}
	}
	return append(list, v)
}
