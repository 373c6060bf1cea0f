// Package constants provides shared constants used throughout metasync.
// This includes timeouts, page sizes, file names and permissions that
// should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to either system
	DefaultHTTPTimeout = 30 * time.Second

	// SecretLookupTimeout bounds a single credential lookup
	SecretLookupTimeout = 15 * time.Second

	// RunTimeout is the default timeout for a full sync run
	RunTimeout = 2 * time.Hour
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Paging defaults
const (
	// DefaultKeyfactorPageSize is the number of Keyfactor certificates requested per page
	DefaultKeyfactorPageSize = 100

	// DefaultSectigoPageSize is the number of Sectigo certificates requested per page
	DefaultSectigoPageSize = 25
)

// Configuration files
const (
	// DefaultConfigDir holds config.json, fields.json and the banned character table
	DefaultConfigDir = "config"

	// ConfigFile is the main configuration file name
	ConfigFile = "config.json"

	// FieldsFile declares manual and custom field mappings
	FieldsFile = "fields.json"

	// BannedCharactersFile is the persisted banned character table
	BannedCharactersFile = "bannedcharacters.json"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "METASYNC"
)

// Field defaults
const (
	// DefaultKeyfactorDateFormat is the date pattern Keyfactor renders metadata dates in
	DefaultKeyfactorDateFormat = "M/d/yyyy h:mm:ss tt"

	// CanonicalDateLayout is the Go layout Sectigo accepts for date custom fields
	CanonicalDateLayout = "2006-01-02"

	// DefaultIssuerDNLookupTerm selects Sectigo-issued certificates in Keyfactor
	DefaultIssuerDNLookupTerm = "Sectigo"

	// RequestedWithHeader is sent on every Keyfactor request
	RequestedWithHeader = "x-keyfactor-requested-with"

	// RequestedWithValue identifies API clients to Keyfactor
	RequestedWithValue = "APIClient"
)
