// Package secrets resolves credential references found in configuration.
//
// A value is either a literal, "env:NAME" to read an environment variable,
// or "awssm:SECRET_ID" / "awssm:SECRET_ID#key" to read an AWS Secrets Manager
// secret (optionally one key of a JSON secret).
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/logging"
)

// Reference prefixes.
const (
	EnvPrefix            = "env:"
	SecretsManagerPrefix = "awssm:"
)

// AWS error codes.
const (
	resourceNotFound = "ResourceNotFoundException"
	accessDenied     = "AccessDeniedException"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver resolves references. Secrets Manager values are cached per secret
// ID for the lifetime of the resolver. It is safe for concurrent use.
type Resolver struct {
	lookupEnv func(string) (string, bool)
	newAPI    func(ctx context.Context) (SecretsManagerAPI, error)

	mu    sync.Mutex
	api   SecretsManagerAPI
	cache map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSecretsManager uses api instead of a client built from the default AWS configuration.
func WithSecretsManager(api SecretsManagerAPI) Option {
	return func(r *Resolver) {
		r.api = api
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) {
		r.lookupEnv = fn
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lookupEnv: os.LookupEnv,
		newAPI:    defaultAPI,
		cache:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultAPI(ctx context.Context) (SecretsManagerAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.NewConfigError("aws", "failed to load AWS configuration", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// IsReference reports whether value names an external secret.
func IsReference(value string) bool {
	return strings.HasPrefix(value, EnvPrefix) || strings.HasPrefix(value, SecretsManagerPrefix)
}

// Resolve returns the plain value of ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, EnvPrefix):
		name := strings.TrimPrefix(ref, EnvPrefix)
		value, ok := r.lookupEnv(name)
		if !ok {
			return "", errors.NewConfigError("secrets", fmt.Sprintf("environment variable %s is not set", name), nil)
		}
		return value, nil
	case strings.HasPrefix(ref, SecretsManagerPrefix):
		id, key, _ := strings.Cut(strings.TrimPrefix(ref, SecretsManagerPrefix), "#")
		if id == "" {
			return "", errors.NewValidationError("secret", ref, "secret ID is empty")
		}
		secret, err := r.secret(ctx, id)
		if err != nil {
			return "", err
		}
		if key == "" {
			return secret, nil
		}
		return extractKey(id, key, secret)
	default:
		return ref, nil
	}
}

func (r *Resolver) secret(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache[id]; ok {
		return v, nil
	}
	if r.api == nil {
		api, err := r.newAPI(ctx)
		if err != nil {
			return "", err
		}
		r.api = api
	}

	ctx, cancel := context.WithTimeout(ctx, constants.SecretLookupTimeout)
	defer cancel()

	logging.FromContext(ctx).Debug().Str("secret_id", id).Msg("Fetching secret from AWS Secrets Manager")
	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		return "", classify(id, err)
	}
	if out.SecretString == nil {
		return "", errors.NewValidationError("secret", id, "secret has no string value")
	}
	r.cache[id] = *out.SecretString
	return *out.SecretString, nil
}

func classify(id string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case resourceNotFound:
			return errors.NewNotFoundError("secret", id)
		case accessDenied:
			return errors.NewAuthenticationError("aws", "iam", "access denied to secret "+id, err)
		}
	}
	return errors.NewConfigError("secrets", "failed to read secret "+id, err)
}

func extractKey(id, key, secret string) (string, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(secret), &values); err != nil {
		return "", errors.NewParseError("json", id, "secret is not a JSON object", err)
	}
	v, ok := values[key]
	if !ok {
		return "", errors.NewNotFoundError("secret key", id+"#"+key)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
