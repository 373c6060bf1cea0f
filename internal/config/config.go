// Package config loads metasync configuration from a config directory.
//
// The directory holds config.json (connection and run settings under a
// top-level "Config" object), fields.json (declared Manual and Custom
// fields) and the banned-character table. JSON files may contain comments
// and trailing commas. Every setting can be overridden by an environment
// variable METASYNC_<KEY>, for example METASYNC_KEYFACTORPAGESIZE.
package config

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"github.com/agentstation/metasync/internal/secrets"
	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/logging"
)

// Settings are the run settings of config.json.
type Settings struct {
	SectigoLogin       string `mapstructure:"sectigoLogin"`
	SectigoPassword    string `mapstructure:"sectigoPassword"`
	SectigoCustomerURI string `mapstructure:"sectigoCustomerUri"`
	SectigoAPIURL      string `mapstructure:"sectigoAPIUrl"`

	KeyfactorAPIURL   string `mapstructure:"keyfactorAPIUrl"`
	KeyfactorLogin    string `mapstructure:"keyfactorLogin"`
	KeyfactorPassword string `mapstructure:"keyfactorPassword"`

	KeyfactorDateFormat        string `mapstructure:"keyfactorDateFormat"`
	ImportAllCustomFields      bool   `mapstructure:"importAllCustomFields"`
	SyncRevokedAndExpiredCerts bool   `mapstructure:"syncRevokedAndExpiredCerts"`
	IssuerDNLookupTerm         string `mapstructure:"issuerDNLookupTerm"`
	EnableDisabledFieldSync    bool   `mapstructure:"enableDisabledFieldSync"`
	SSLTypeIDs                 []int  `mapstructure:"sslTypeIds"`
	SectigoPageSize            int    `mapstructure:"sectigoPageSize"`
	KeyfactorPageSize          int    `mapstructure:"keyfactorPageSize"`
}

// FieldDeclaration is one entry of fields.json.
type FieldDeclaration struct {
	SectigoFieldName           string   `mapstructure:"sectigoFieldName"`
	KeyfactorMetadataFieldName string   `mapstructure:"keyfactorMetadataFieldName"`
	KeyfactorDescription       string   `mapstructure:"keyfactorDescription"`
	KeyfactorDataType          string   `mapstructure:"keyfactorDataType"`
	KeyfactorHint              string   `mapstructure:"keyfactorHint"`
	KeyfactorValidation        string   `mapstructure:"keyfactorValidation"`
	KeyfactorMessage           string   `mapstructure:"keyfactorMessage"`
	KeyfactorOptions           []string `mapstructure:"keyfactorOptions"`
	KeyfactorDefaultValue      string   `mapstructure:"keyfactorDefaultValue"`
	KeyfactorEnrollment        int      `mapstructure:"keyfactorEnrollment"`
	KeyfactorDisplayOrder      int      `mapstructure:"keyfactorDisplayOrder"`
	KeyfactorCaseSensitive     bool     `mapstructure:"keyfactorCaseSensitive"`
	KeyfactorAllowAPI          bool     `mapstructure:"keyfactorAllowAPI"`
}

// Fields is the content of fields.json.
type Fields struct {
	ManualFields []FieldDeclaration `mapstructure:"ManualFields"`
	CustomFields []FieldDeclaration `mapstructure:"CustomFields"`
}

// Config is the loaded configuration.
type Config struct {
	Dir      string
	Settings Settings
	Fields   Fields
	// TableFile is the banned-character table file name inside Dir.
	TableFile string
}

// defaults apply to keys missing from config.json. Every key is listed so
// that environment overrides reach Unmarshal.
var defaults = map[string]any{
	"sectigoLogin":               "",
	"sectigoPassword":            "",
	"sectigoCustomerUri":         "",
	"sectigoAPIUrl":              "",
	"keyfactorAPIUrl":            "",
	"keyfactorLogin":             "",
	"keyfactorPassword":          "",
	"keyfactorDateFormat":        constants.DefaultKeyfactorDateFormat,
	"importAllCustomFields":      false,
	"syncRevokedAndExpiredCerts": false,
	"issuerDNLookupTerm":         constants.DefaultIssuerDNLookupTerm,
	"enableDisabledFieldSync":    false,
	"sslTypeIds":                 []int{},
	"sectigoPageSize":            constants.DefaultSectigoPageSize,
	"keyfactorPageSize":          constants.DefaultKeyfactorPageSize,
}

// Loader reads configuration from a filesystem.
type Loader struct {
	fs        billy.Filesystem
	dir       string
	resolver  *secrets.Resolver
	lookupEnv func(string) (string, bool)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithResolver sets the credential reference resolver.
func WithResolver(r *secrets.Resolver) LoaderOption {
	return func(l *Loader) {
		l.resolver = r
	}
}

// WithEnv replaces os.LookupEnv for overrides.
func WithEnv(lookup func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = lookup
	}
}

// NewLoader reads the config directory dir from the local filesystem.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	return NewLoaderFS(osfs.New(dir), dir, opts...)
}

// NewLoaderFS reads configuration files from the root of fs. dir is only
// reported in the result and in errors.
func NewLoaderFS(fs billy.Filesystem, dir string, opts ...LoaderOption) *Loader {
	l := &Loader{fs: fs, dir: dir, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	if l.resolver == nil {
		l.resolver = secrets.NewResolver(secrets.WithLookupEnv(l.lookupEnv))
	}
	return l
}

// Load reads, resolves and validates the configuration.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	settings, err := l.loadSettings()
	if err != nil {
		return nil, err
	}
	flds, err := l.loadFields()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Dir:       l.dir,
		Settings:  settings,
		Fields:    flds,
		TableFile: constants.BannedCharactersFile,
	}
	if name, ok := l.lookupEnv(constants.EnvPrefix + "_TABLEFILE"); ok && name != "" {
		cfg.TableFile = name
	}

	if err := l.resolveCredentials(ctx, &cfg.Settings); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Str("dir", l.dir).
		Int("manual_fields", len(flds.ManualFields)).
		Int("custom_fields", len(flds.CustomFields)).
		Ints("ssl_type_ids", settings.SSLTypeIDs).
		Msg("Loaded configuration")
	return cfg, nil
}

func (l *Loader) loadSettings() (Settings, error) {
	file, err := l.readJSON(constants.ConfigFile)
	if err != nil {
		return Settings{}, err
	}
	if !file.IsSet("Config") {
		return Settings{}, errors.NewConfigError(constants.ConfigFile, `missing "Config" section`, nil)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := v.MergeConfigMap(file.GetStringMap("Config")); err != nil {
		return Settings{}, errors.WrapParse("json", constants.ConfigFile, err)
	}
	for key := range defaults {
		if value, ok := l.lookupEnv(envName(key)); ok {
			v.Set(key, value)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.WrapParse("json", constants.ConfigFile, err)
	}
	return s, nil
}

func (l *Loader) loadFields() (Fields, error) {
	file, err := l.readJSON(constants.FieldsFile)
	if err != nil {
		return Fields{}, err
	}
	if !file.IsSet("ManualFields") && !file.IsSet("CustomFields") {
		return Fields{}, errors.NewConfigError(constants.FieldsFile, `missing "ManualFields" and "CustomFields" sections`, nil)
	}
	var f Fields
	if err := file.Unmarshal(&f); err != nil {
		return Fields{}, errors.WrapParse("json", constants.FieldsFile, err)
	}
	return f, nil
}

// readJSON loads a JSON-with-comments file into a fresh viper instance.
func (l *Loader) readJSON(name string) (*viper.Viper, error) {
	data, err := util.ReadFile(l.fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError(name, "file not found in "+l.dir, err)
		}
		return nil, errors.WrapIO("read", name, err)
	}
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data))); err != nil {
		return nil, errors.WrapParse("json", name, err)
	}
	return v, nil
}

func (l *Loader) resolveCredentials(ctx context.Context, s *Settings) error {
	refs := map[string]*string{
		"sectigoLogin":      &s.SectigoLogin,
		"sectigoPassword":   &s.SectigoPassword,
		"keyfactorLogin":    &s.KeyfactorLogin,
		"keyfactorPassword": &s.KeyfactorPassword,
	}
	for key, value := range refs {
		if !secrets.IsReference(*value) {
			continue
		}
		resolved, err := l.resolver.Resolve(ctx, *value)
		if err != nil {
			return errors.NewConfigError(key, "failed to resolve credential reference", err)
		}
		*value = resolved
	}
	return nil
}

func envName(key string) string {
	return constants.EnvPrefix + "_" + strings.ToUpper(key)
}

// LoadEnvFiles loads .env and .env.local from the working directory when
// present. Existing environment variables are not overridden.
func LoadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Load(name)
	}
}
