package session

import (
	"context"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

func TestEnvSource_ReadsEnvironment(t *testing.T) {
	t.Setenv(EnvGoogleToken, "env-g")
	t.Setenv(EnvMicrosoftToken, "env-m")
	t.Setenv(EnvMicrosoftTenantID, "tenant-env")

	sess, err := NewEnvSource(nil).Session(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !sess.GoogleValid() || !sess.MicrosoftValid() {
		t.Fatalf("session not valid: %+v", sess)
	}
	if sess.GoogleToken != "env-g" || sess.MicrosoftToken != "env-m" {
		t.Fatalf("tokens = %q %q", sess.GoogleToken, sess.MicrosoftToken)
	}
	if sess.MicrosoftTenantID != "tenant-env" {
		t.Fatalf("tenant = %q", sess.MicrosoftTenantID)
	}
}

func TestEnvSource_StoreWinsOverEnv(t *testing.T) {
	t.Setenv(EnvGoogleToken, "env-g")
	t.Setenv(EnvMicrosoftToken, "")

	tokens := NewTokenStore()
	tokens.Set(core.ProviderGoogle, "store-g")

	sess, err := NewEnvSource(tokens).Session(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sess.GoogleToken != "store-g" {
		t.Fatalf("google token = %q, want store value", sess.GoogleToken)
	}
	if sess.HasMicrosoftAuth {
		t.Fatal("microsoft auth should be absent")
	}
}
