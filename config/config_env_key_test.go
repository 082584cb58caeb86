package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"firebase": map[string]any{
			"projectId":       "",
			"credentialsPath": "",
		},
		"blob": map[string]any{
			"bucketUrl":     "mem://",
			"publicBaseUrl": "",
		},
		"pubsub": map[string]any{
			"topicId": "",
		},
		"auth": map[string]any{
			"local": map[string]any{
				"tokenTtl": "12h",
			},
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "FIREBASE_PROJECTID", want: "firebase.projectId"},
		{envKey: "FIREBASE_CREDENTIALSPATH", want: "firebase.credentialsPath"},
		{envKey: "BLOB_BUCKETURL", want: "blob.bucketUrl"},
		{envKey: "PUBSUB_TOPICID", want: "pubsub.topicId"},
		{envKey: "AUTH_LOCAL_TOKENTTL", want: "auth.local.tokenTtl"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestApplyDefaults_FillsMissingSections(t *testing.T) {
	cfg := &Config{}

	applyDefaults(cfg)

	require.NotNil(t, cfg.Store)
	assert.Equal(t, StoreProviderMemory, cfg.Store.Provider)
	require.NotNil(t, cfg.Auth)
	assert.Equal(t, AuthProviderFirebase, cfg.Auth.Provider)
	require.NotNil(t, cfg.Blob)
	assert.Equal(t, "mem://", cfg.Blob.BucketURL)
	assert.Equal(t, defaultSignedURLExpiry, cfg.Blob.SignedURLExpiry)
	assert.Equal(t, defaultMaxRequestBodySize, cfg.HTTP.MaxRequestBodySize)
	require.NotNil(t, cfg.Live)
	assert.Equal(t, 64, cfg.Live.SendQueueSize)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Auth: &AuthConfig{
			Provider: AuthProviderLocal,
			Local:    &LocalAuthConfig{Secret: "s", TokenTTL: time.Hour},
		},
		Live: &LiveConfig{SendQueueSize: 8},
	}

	applyDefaults(cfg)

	assert.Equal(t, AuthProviderLocal, cfg.Auth.Provider)
	assert.Equal(t, time.Hour, cfg.Auth.Local.TokenTTL)
	assert.Equal(t, 8, cfg.Live.SendQueueSize)
}
