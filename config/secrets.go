package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/hashicorp/vault/api"

	"dokq/core"
)

// SecretManager resolves the JWT signing secret from its configured source.
type SecretManager interface {
	GetSecret(key string) (string, error)
	GetJWTSecret() (string, error)
}

// knownPlaceholders are secrets that ship in examples and templates.
// Finding one configured means the deployment was never provisioned.
var knownPlaceholders = map[string]struct{}{
	"fallback-secret":          {},
	"secret":                   {},
	"changeme":                 {},
	"change-me":                {},
	"your-secret-key":          {},
	"your-256-bit-secret":      {},
	"dokq-development-secret":  {},
	"insecure-default":         {},
}

// ValidateJWTSecret rejects missing, placeholder, or short signing
// secrets. This is a fatal misconfiguration: callers must not fall back
// to a weaker scheme.
func ValidateJWTSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("jwt secret is not configured")
	}
	if _, ok := knownPlaceholders[strings.ToLower(secret)]; ok {
		return fmt.Errorf("jwt secret is a known placeholder value")
	}
	if len(secret) < core.MinJWTSecretLength {
		return fmt.Errorf("jwt secret must be at least %d characters, got %d",
			core.MinJWTSecretLength, len(secret))
	}
	return nil
}

// EnvSecretManager reads secrets from the process environment (default).
type EnvSecretManager struct {
	// Fallback is consulted when the environment variable is unset, so a
	// secret placed directly in the config file still resolves.
	Fallback string
}

func (e *EnvSecretManager) GetSecret(key string) (string, error) {
	envKey := "DOKQ_" + strings.ToUpper(key)
	value := os.Getenv(envKey)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envKey)
	}
	return value, nil
}

func (e *EnvSecretManager) GetJWTSecret() (string, error) {
	if secret, err := e.GetSecret("AUTH_JWT_SECRET"); err == nil {
		return secret, nil
	}
	if e.Fallback != "" {
		return e.Fallback, nil
	}
	return "", fmt.Errorf("jwt secret not found in environment or config")
}

// VaultSecretManager retrieves secrets from HashiCorp Vault.
type VaultSecretManager struct {
	config *Config
	client *api.Client
}

func NewVaultSecretManager(config *Config) (*VaultSecretManager, error) {
	client, err := api.NewClient(&api.Config{
		Address: config.Secrets.Vault.Address,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if config.Secrets.Vault.Token != "" {
		client.SetToken(config.Secrets.Vault.Token)
	} else if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}

	return &VaultSecretManager{config: config, client: client}, nil
}

func (v *VaultSecretManager) GetSecret(key string) (string, error) {
	path := v.config.Secrets.Vault.Path
	if path == "" {
		path = "secret/dokq"
	}

	secret, err := v.client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret not found at path %s", path)
	}

	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key %s not found in Vault secret", key)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key %s is not a string", key)
	}
	return strValue, nil
}

func (v *VaultSecretManager) GetJWTSecret() (string, error) {
	return v.GetSecret("jwt_secret")
}

// AWSSecretManager retrieves secrets from AWS Secrets Manager.
type AWSSecretManager struct {
	config *Config
	client *secretsmanager.SecretsManager
}

func NewAWSSecretManager(config *Config) (*AWSSecretManager, error) {
	var sess *session.Session
	var err error

	if config.Secrets.AWS.AccessKey != "" && config.Secrets.AWS.SecretKey != "" {
		sess, err = session.NewSession(&aws.Config{
			Region: aws.String(config.Secrets.AWS.Region),
			Credentials: credentials.NewStaticCredentials(
				config.Secrets.AWS.AccessKey,
				config.Secrets.AWS.SecretKey,
				"",
			),
		})
	} else {
		sess, err = session.NewSession(&aws.Config{
			Region: aws.String(config.Secrets.AWS.Region),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &AWSSecretManager{config: config, client: secretsmanager.New(sess)}, nil
}

func (a *AWSSecretManager) GetSecret(key string) (string, error) {
	secretID := a.config.Secrets.AWS.SecretID
	if secretID == "" {
		secretID = "dokq/secrets"
	}

	result, err := a.client.GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret from AWS: %w", err)
	}

	var secrets map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
		return "", fmt.Errorf("failed to parse AWS secret JSON: %w", err)
	}

	value, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("key %s not found in AWS secret", key)
	}
	return value, nil
}

func (a *AWSSecretManager) GetJWTSecret() (string, error) {
	return a.GetSecret("jwt_secret")
}

// NewSecretManager creates the secret manager selected by configuration.
func NewSecretManager(config *Config) (SecretManager, error) {
	provider := config.Secrets.Provider
	if provider == "" {
		provider = "env"
	}

	switch provider {
	case "env":
		return &EnvSecretManager{Fallback: config.Auth.JWTSecret}, nil
	case "vault":
		return NewVaultSecretManager(config)
	case "aws":
		return NewAWSSecretManager(config)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", provider)
	}
}
