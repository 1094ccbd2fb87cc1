package steps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/cache"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
)

func stubSession() core.SessionSource {
	return core.SessionSourceFunc(func(ctx context.Context) (*core.Session, error) {
		return &core.Session{
			HasGoogleAuth:    true,
			HasMicrosoftAuth: true,
			GoogleToken:      "g-tok",
			MicrosoftToken:   "m-tok",
		}, nil
	})
}

func googleServiceFor(t *testing.T, handler http.HandlerFunc) *provider.GoogleService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := provider.NewClient(core.ProviderGoogle, srv.URL, stubSession())
	return provider.NewGoogleService(c, c, cache.New())
}

func microsoftServiceFor(t *testing.T, handler http.HandlerFunc) *provider.MicrosoftService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := provider.NewClient(core.ProviderMicrosoft, srv.URL, stubSession())
	return provider.NewMicrosoftService(c, cache.New())
}

func TestCreateAutomationOU_Check_Exists(t *testing.T) {
	google := googleServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organizationUnits":[
			{"orgUnitId":"ou-123","name":"Automation","orgUnitPath":"/Automation"}
		]}`))
	})
	step := &createAutomationOUStep{google: google}

	res, err := step.Check(context.Background(), &core.StepContext{Domain: "example.com"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Completed {
		t.Fatal("Completed = false, want true")
	}
	if res.Outputs[OutAutomationOUID] != "ou-123" {
		t.Errorf("AUTOMATION_OU_ID = %v, want ou-123", res.Outputs[OutAutomationOUID])
	}
	if res.Outputs[OutAutomationOUPath] != "/Automation" {
		t.Errorf("AUTOMATION_OU_PATH = %v, want /Automation", res.Outputs[OutAutomationOUPath])
	}
	if !strings.Contains(res.ResourceURL, "admin.google.com") {
		t.Errorf("ResourceURL = %q, want admin console link", res.ResourceURL)
	}
	if !res.PreExisting {
		t.Error("PreExisting = false, want true for a found resource")
	}
}

func TestCreateAutomationOU_Check_Absent(t *testing.T) {
	google := googleServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organizationUnits":[]}`))
	})
	step := &createAutomationOUStep{google: google}

	res, err := step.Check(context.Background(), &core.StepContext{Domain: "example.com"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Completed {
		t.Error("Completed = true, want false")
	}
	if !strings.Contains(res.Message, "not found") {
		t.Errorf("Message = %q, want 'not found'", res.Message)
	}
}

func TestCreateAutomationOU_Execute(t *testing.T) {
	google := googleServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(`{"orgUnitId":"ou-new","name":"Automation","orgUnitPath":"/Automation"}`))
	})
	step := &createAutomationOUStep{google: google}

	res, err := step.Execute(context.Background(), configuredContext(nil))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if res.Outputs[OutAutomationOUID] != "ou-new" {
		t.Errorf("AUTOMATION_OU_ID = %v", res.Outputs[OutAutomationOUID])
	}
}

func TestCreateProvisioningUser_Check_Suspended(t *testing.T) {
	google := googleServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u-1","primaryEmail":"federation-automation@example.com","suspended":true}`))
	})
	step := &createProvisioningUserStep{google: google}

	res, err := step.Check(context.Background(), &core.StepContext{Domain: "example.com"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Completed {
		t.Error("suspended account counted as completed")
	}
	if !strings.Contains(res.Message, "suspended") {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestCreateProvisioningUser_Execute_RequiresOUPath(t *testing.T) {
	step := &createProvisioningUserStep{google: nil}

	res, err := step.Execute(context.Background(), configuredContext(nil))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Success || res.Error == nil || res.Error.Code != core.CodeMissingDependency {
		t.Errorf("result = %+v, want MISSING_DEPENDENCY before any API call", res)
	}
}

func TestVerifyDomain_Check(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		status        int
		wantCompleted bool
		wantInMessage string
	}{
		{"verified", `{"id":"example.com","isVerified":true}`, 200, true, "verified"},
		{"unverified", `{"id":"example.com","isVerified":false}`, 200, false, "not verified"},
		{"absent", `{"error":{"code":"Request_ResourceNotFound","message":"missing"}}`, 404, false, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			microsoft := microsoftServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			step := &verifyDomainStep{microsoft: microsoft}

			res, err := step.Check(context.Background(), &core.StepContext{Domain: "example.com"})
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if res.Completed != tt.wantCompleted {
				t.Errorf("Completed = %v, want %v", res.Completed, tt.wantCompleted)
			}
			if !strings.Contains(res.Message, tt.wantInMessage) {
				t.Errorf("Message = %q, want %q", res.Message, tt.wantInMessage)
			}
		})
	}
}

func TestVerifyDomain_HasNoExecuteCapability(t *testing.T) {
	r := NewDefaultRegistry(nil, nil, nil)

	res, err := r.ExecuteStep(context.Background(), StepVerifyDomain, &core.StepContext{})
	if err != nil {
		t.Fatalf("ExecuteStep() error = %v", err)
	}
	if res.Error == nil || res.Error.Code != core.CodeNoExecuteFunction {
		t.Errorf("result = %+v, want NO_EXECUTE_FUNCTION for a manual step", res)
	}
}

func TestConfigureFederation_Execute_ConsumesUpstreamOutputs(t *testing.T) {
	var gotBody string
	microsoft := microsoftServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{"id":"fed-1","issuerUri":"google.com/saml2?idpid=abc"}`))
	})
	step := &configureFederationStep{microsoft: microsoft}

	sc := configuredContext(map[string]interface{}{
		OutEntityID: "google.com/saml2?idpid=abc",
		OutACSURL:   "https://accounts.google.com/samlrp/acs",
		OutAppID:    "app-1",
	})
	res, err := step.Execute(context.Background(), sc)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if !strings.Contains(gotBody, "google.com/saml2") {
		t.Errorf("request body = %q, want issuer from accumulated outputs", gotBody)
	}
	if res.Outputs[OutFederationConfigID] != "fed-1" {
		t.Errorf("FEDERATION_CONFIG_ID = %v, want fed-1", res.Outputs[OutFederationConfigID])
	}

	// The emitted key is part of the step's declared interface.
	declared := false
	for _, out := range step.Definition().Outputs {
		if out.Key == OutFederationConfigID {
			declared = true
		}
	}
	if !declared {
		t.Error("FEDERATION_CONFIG_ID missing from declared outputs")
	}
}

func TestDefaultRegistry_ShapeAndDependencies(t *testing.T) {
	r := NewDefaultRegistry(nil, nil, nil)

	ids := r.IDs()
	if len(ids) != 8 {
		t.Fatalf("len(ids) = %d, want 8", len(ids))
	}
	if ids[0] != StepCreateAutomationOU || ids[len(ids)-1] != StepConfigureFederation {
		t.Errorf("order = %v", ids)
	}

	// Declared inputs must reference steps that appear earlier in order.
	position := make(map[core.StepID]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}
	for _, def := range r.Definitions() {
		for _, in := range def.Inputs {
			producer, ok := position[in.ProducedBy]
			if !ok {
				t.Errorf("step %s consumes %s from unknown step %s", def.ID, in.Key, in.ProducedBy)
				continue
			}
			if producer >= position[def.ID] {
				t.Errorf("step %s consumes %s produced later by %s", def.ID, in.Key, in.ProducedBy)
			}
		}
		for _, dep := range def.DependsOn {
			if _, ok := position[dep]; !ok {
				t.Errorf("step %s depends on unknown step %s", def.ID, dep)
			}
		}
	}
}
