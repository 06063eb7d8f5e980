// Package secrets resolves the key material and database credentials the
// importers need at startup: KMS-encrypted values from the environment or
// object storage, Secrets Manager secrets and RDS IAM tokens.
package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/event-recorder/internal/config"
	"github.com/JonMunkholm/event-recorder/internal/database"
)

// KMSAPI is the subset of the KMS client used by Resolver.
type KMSAPI interface {
	Decrypt(ctx context.Context, input *kms.DecryptInput, opts ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// SecretsAPI is the subset of the Secrets Manager client used by Resolver.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, input *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ObjectReader fetches a whole object. Satisfied by storage.ObjectStore.
type ObjectReader interface {
	ReadAll(ctx context.Context, bucket, key string) ([]byte, error)
}

// TokenBuilder creates an RDS IAM authentication token.
type TokenBuilder func(ctx context.Context, endpoint, region, user string, creds aws.CredentialsProvider) (string, error)

// Resolver turns configuration into usable secrets.
type Resolver struct {
	awsCfg     aws.Config
	kms        KMSAPI
	secrets    SecretsAPI
	objects    ObjectReader
	buildToken TokenBuilder
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKMSClient sets a custom KMS client (useful for testing).
func WithKMSClient(c KMSAPI) Option {
	return func(r *Resolver) { r.kms = c }
}

// WithSecretsClient sets a custom Secrets Manager client (useful for testing).
func WithSecretsClient(c SecretsAPI) Option {
	return func(r *Resolver) { r.secrets = c }
}

// WithObjectReader sets the reader used for keys kept in object storage.
func WithObjectReader(o ObjectReader) Option {
	return func(r *Resolver) { r.objects = o }
}

// WithTokenBuilder replaces auth.BuildAuthToken (useful for testing).
func WithTokenBuilder(b TokenBuilder) Option {
	return func(r *Resolver) { r.buildToken = b }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver. Clients not supplied as options are built
// from awsCfg.
func NewResolver(awsCfg aws.Config, opts ...Option) *Resolver {
	r := &Resolver{
		awsCfg: awsCfg,
		buildToken: func(ctx context.Context, endpoint, region, user string, creds aws.CredentialsProvider) (string, error) {
			return auth.BuildAuthToken(ctx, endpoint, region, user, creds)
		},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.kms == nil {
		r.kms = kms.NewFromConfig(awsCfg)
	}
	if r.secrets == nil {
		r.secrets = secretsmanager.NewFromConfig(awsCfg)
	}
	return r
}

// Decrypt decrypts a base64-encoded KMS ciphertext.
func (r *Resolver) Decrypt(ctx context.Context, ciphertext string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	out, err := r.kms.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return nil, fmt.Errorf("kms decrypt: %w", err)
	}
	return out.Plaintext, nil
}

// ContentKey returns the plaintext key that decrypts queue messages.
func (r *Resolver) ContentKey(ctx context.Context, cfg config.QueueConfig) ([]byte, error) {
	var encrypted string
	switch source := cfg.ResolvedKeySource(); source {
	case config.KeySourceEnv:
		if cfg.EncryptionKey == "" {
			return nil, errors.New("ENCRYPTION_KEY is not set")
		}
		encrypted = cfg.EncryptionKey
		r.logger.Info("Got decryption key from environment variable")
	case config.KeySourceObjectStore:
		if r.objects == nil {
			return nil, errors.New("no object reader for decryption key")
		}
		data, err := r.objects.ReadAll(ctx, cfg.KeyBucket, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("fetching decryption key %s/%s: %w", cfg.KeyBucket, cfg.KeyFile, err)
		}
		encrypted = string(data)
		r.logger.Info("Got decryption key from S3")
	default:
		return nil, fmt.Errorf("unknown decryption key source %q", source)
	}

	key, err := r.Decrypt(ctx, encrypted)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Decrypted key successfully")
	return key, nil
}

// DatabasePassword returns the password source for cfg.CredentialSource.
// A nil func means the connection string already carries what is needed.
func (r *Resolver) DatabasePassword(ctx context.Context, cfg config.DatabaseConfig) (database.PasswordFunc, error) {
	switch cfg.CredentialSource {
	case "", config.CredentialSourceEnv:
		if cfg.EncryptedPassword == "" {
			return nil, nil
		}
		plain, err := r.Decrypt(ctx, cfg.EncryptedPassword)
		if err != nil {
			return nil, fmt.Errorf("decrypting database password: %w", err)
		}
		password := string(plain)
		return func(context.Context) (string, error) { return password, nil }, nil

	case config.CredentialSourceSecretStore:
		if cfg.SecretID == "" {
			return nil, errors.New("DB_SECRET_ID is required for the secret-store credential source")
		}
		return func(ctx context.Context) (string, error) {
			return r.secretPassword(ctx, cfg.SecretID)
		}, nil

	case config.CredentialSourceIAM:
		conn, err := pgconn.ParseConfig(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing database URL: %w", err)
		}
		endpoint := net.JoinHostPort(conn.Host, strconv.Itoa(int(conn.Port)))
		user := conn.User
		return func(ctx context.Context) (string, error) {
			token, err := r.buildToken(ctx, endpoint, r.awsCfg.Region, user, r.awsCfg.Credentials)
			if err != nil {
				return "", fmt.Errorf("building IAM auth token: %w", err)
			}
			return token, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown database credential source %q", cfg.CredentialSource)
}

// secretPassword reads a secret that is either the bare password or a JSON
// document with a "password" member (the RDS-managed secret shape).
func (r *Resolver) secretPassword(ctx context.Context, secretID string) (string, error) {
	out, err := r.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %s: %w", secretID, err)
	}

	value := aws.ToString(out.SecretString)
	if value == "" {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}
	if gjson.Valid(value) {
		if pw := gjson.Get(value, "password"); pw.Exists() {
			return pw.String(), nil
		}
	}
	return value, nil
}
