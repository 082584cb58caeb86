package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultUploadBodySize     = "50MB"
	defaultTokenTTL           = 12 * time.Hour
	defaultSignedURLExpiry    = 7 * 24 * time.Hour
	defaultUploadChunkSize    = 8 << 20
)

// Store provider names.
const (
	StoreProviderFirestore = "firestore"
	StoreProviderMemory    = "memory"
)

// Identity provider names.
const (
	AuthProviderFirebase = "firebase"
	AuthProviderLocal    = "local"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		MaxUploadBodySize  string `json:"maxUploadBodySize" yaml:"maxUploadBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	// Firebase project used for auth, Firestore and Cloud Messaging
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// Store selects the document store backend
	Store *StoreConfig `json:"store" yaml:"store"`

	// Blob configures file attachment storage
	Blob *BlobConfig `json:"blob" yaml:"blob"`

	// Auth selects the identity provider
	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// PubSub configuration for notification event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// Portal describes the client-facing portal
	Portal *PortalConfig `json:"portal" yaml:"portal"`

	// QRCode configuration for portal invite codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`

	// Live configures the websocket live-sync endpoint
	Live *LiveConfig `json:"live" yaml:"live"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// FirebaseConfig defines the Firebase project credentials
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
}

// StoreConfig defines the document store backend
type StoreConfig struct {
	// Provider is "firestore" or "memory"
	Provider string `json:"provider" yaml:"provider"`
}

// BlobConfig defines where uploaded files are kept
type BlobConfig struct {
	// BucketURL is a gocloud.dev bucket URL: gs://bucket, file:///path or mem://
	BucketURL string `json:"bucketUrl" yaml:"bucketUrl"`

	// PublicBaseURL is used to build download URLs when the bucket cannot sign them
	PublicBaseURL string `json:"publicBaseUrl" yaml:"publicBaseUrl"`

	SignedURLExpiry time.Duration `json:"signedUrlExpiry" yaml:"signedUrlExpiry"`
	ChunkSize       int           `json:"chunkSize" yaml:"chunkSize"`
}

// AuthConfig defines the identity provider
type AuthConfig struct {
	// Provider is "firebase" or "local"
	Provider string `json:"provider" yaml:"provider"`

	Local *LocalAuthConfig `json:"local" yaml:"local"`
}

// LocalAuthConfig defines the development identity provider
type LocalAuthConfig struct {
	Secret     string         `json:"secret" yaml:"secret"`
	TokenTTL   time.Duration  `json:"tokenTtl" yaml:"tokenTtl"`
	BcryptCost int            `json:"bcryptCost" yaml:"bcryptCost"`
	Accounts   []LocalAccount `json:"accounts" yaml:"accounts"`
}

// LocalAccount is a statically configured development login
type LocalAccount struct {
	UID          string `json:"uid" yaml:"uid"`
	Email        string `json:"email" yaml:"email"`
	Name         string `json:"name" yaml:"name"`
	AvatarURL    string `json:"avatarUrl" yaml:"avatarUrl"`
	PasswordHash string `json:"passwordHash" yaml:"passwordHash"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// PortalConfig defines the client portal
type PortalConfig struct {
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

// LiveConfig defines websocket limits for the live-sync endpoint
type LiveConfig struct {
	ReadBufferSize  int           `json:"readBufferSize" yaml:"readBufferSize"`
	WriteBufferSize int           `json:"writeBufferSize" yaml:"writeBufferSize"`
	SendQueueSize   int           `json:"sendQueueSize" yaml:"sendQueueSize"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	PingInterval    time.Duration `json:"pingInterval" yaml:"pingInterval"`
	AllowedOrigins  []string      `json:"allowedOrigins" yaml:"allowedOrigins"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if strings.TrimSpace(cfg.HTTP.MaxUploadBodySize) == "" {
		cfg.HTTP.MaxUploadBodySize = defaultUploadBodySize
	}

	if cfg.Store == nil {
		cfg.Store = &StoreConfig{Provider: StoreProviderMemory}
	}
	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{Provider: AuthProviderFirebase}
	}
	if cfg.Auth.Local != nil && cfg.Auth.Local.TokenTTL == 0 {
		cfg.Auth.Local.TokenTTL = defaultTokenTTL
	}

	if cfg.Blob == nil {
		cfg.Blob = &BlobConfig{BucketURL: "mem://"}
	}
	if cfg.Blob.SignedURLExpiry == 0 {
		cfg.Blob.SignedURLExpiry = defaultSignedURLExpiry
	}
	if cfg.Blob.ChunkSize == 0 {
		cfg.Blob.ChunkSize = defaultUploadChunkSize
	}

	if cfg.Live == nil {
		cfg.Live = &LiveConfig{}
	}
	if cfg.Live.ReadBufferSize == 0 {
		cfg.Live.ReadBufferSize = 1024
	}
	if cfg.Live.WriteBufferSize == 0 {
		cfg.Live.WriteBufferSize = 4096
	}
	if cfg.Live.SendQueueSize == 0 {
		cfg.Live.SendQueueSize = 64
	}
	if cfg.Live.WriteTimeout == 0 {
		cfg.Live.WriteTimeout = 10 * time.Second
	}
	if cfg.Live.PingInterval == 0 {
		cfg.Live.PingInterval = 30 * time.Second
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

