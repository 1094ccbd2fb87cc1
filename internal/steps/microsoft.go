package steps

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
)

const appRegistrationName = "Google Workspace Federation"

// verifyDomainStep confirms the customer domain is verified in the tenant.
// Verification itself happens in the admin portal (DNS records), so this
// step is manual with an automated check.
type verifyDomainStep struct {
	microsoft *provider.MicrosoftService
}

func (s *verifyDomainStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepVerifyDomain,
		Title:       "Verify domain in tenant",
		Description: "Confirms the customer domain is registered and verified in the identity platform tenant.",
		Details: "Add the domain in the Entra admin center and publish the TXT record it asks for. " +
			"This step only verifies the result; it cannot publish DNS records for you.",
		Category:       "Tenant",
		Activity:       "Verification",
		Provider:       core.ProviderMicrosoft,
		Automatability: core.AutomatabilityManual,
		Automatable:    false,
	}
}

func (s *verifyDomainStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	d, err := s.microsoft.GetDomain(ctx, sc.Domain)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("Domain %s not found in tenant", sc.Domain),
		}, nil
	}
	if !d.IsVerified {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("Domain %s is registered but not verified", sc.Domain),
		}, nil
	}
	return &core.CheckResult{
		Completed:   true,
		Message:     fmt.Sprintf("Domain %s is verified", sc.Domain),
		PreExisting: true,
	}, nil
}

// createAppRegistrationStep creates the app registration representing the
// directory side of the federation.
type createAppRegistrationStep struct {
	microsoft *provider.MicrosoftService
}

func (s *createAppRegistrationStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepCreateAppRegistration,
		Title:       "Create app registration",
		Description: "Registers the federation application in the tenant.",
		Category:       "Tenant",
		Activity:       "Provisioning",
		Provider:       core.ProviderMicrosoft,
		Automatability: core.AutomatabilityAutomated,
		Automatable:    true,
		DependsOn:      []core.StepID{StepVerifyDomain},
		Outputs: []core.OutputDescriptor{
			{Key: OutAppID, Description: "Application (client) id"},
			{Key: OutAppObjectID, Description: "Directory object id of the registration"},
		},
	}
}

func appRegistrationOutputs(app *provider.Application) map[string]interface{} {
	return map[string]interface{}{
		OutAppID:       app.AppID,
		OutAppObjectID: app.ID,
	}
}

func (s *createAppRegistrationStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	app, err := s.microsoft.FindApplication(ctx, appRegistrationName)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("App registration %q not found", appRegistrationName),
		}, nil
	}
	return &core.CheckResult{
		Completed:   true,
		Message:     fmt.Sprintf("App registration %q exists", appRegistrationName),
		Outputs:     appRegistrationOutputs(app),
		ResourceURL: provider.EntraConsoleAppURL(app.AppID),
		PreExisting: true,
	}, nil
}

func (s *createAppRegistrationStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	return WrapExecute(StepCreateAppRegistration, nil, func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		app, err := s.microsoft.CreateApplication(ctx, appRegistrationName)
		if err != nil {
			return nil, err
		}
		return &core.ExecutionResult{
			Success:     true,
			Outputs:     appRegistrationOutputs(app),
			ResourceURL: provider.EntraConsoleAppURL(app.AppID),
		}, nil
	})(ctx, sc)
}

// createServicePrincipalStep instantiates the app in the tenant. Supervised:
// it changes who can sign in, so it is executed on explicit request only.
type createServicePrincipalStep struct {
	microsoft *provider.MicrosoftService
}

func (s *createServicePrincipalStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepCreateServicePrincipal,
		Title:       "Create service principal",
		Description: "Instantiates the federation application in the tenant and enables provisioning claims.",
		Category:       "Tenant",
		Activity:       "Provisioning",
		Provider:       core.ProviderMicrosoft,
		Automatability: core.AutomatabilitySupervised,
		Automatable:    false,
		DependsOn:      []core.StepID{StepCreateAppRegistration},
		Inputs: []core.InputDescriptor{
			{Key: OutAppID, ProducedBy: StepCreateAppRegistration},
		},
		Outputs: []core.OutputDescriptor{
			{Key: OutServicePrincipalID},
		},
	}
}

func (s *createServicePrincipalStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	return WrapExecute(StepCreateServicePrincipal, []string{OutAppID}, func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		sp, err := s.microsoft.CreateServicePrincipal(ctx, sc.StringOutput(OutAppID))
		if err != nil {
			return nil, err
		}
		return &core.ExecutionResult{
			Success: true,
			Outputs: map[string]interface{}{
				OutServicePrincipalID: sp.ID,
			},
		}, nil
	})(ctx, sc)
}

// configureFederationStep writes the domain's federation configuration,
// pointing the tenant at the directory's SAML profile.
type configureFederationStep struct {
	microsoft *provider.MicrosoftService
}

func (s *configureFederationStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepConfigureFederation,
		Title:       "Configure domain federation",
		Description: "Exchanges federation metadata: points the tenant's domain at the directory's SAML endpoints.",
		Category:       "Federation",
		Activity:       "SSO",
		Provider:       core.ProviderMicrosoft,
		Automatability: core.AutomatabilityAutomated,
		Automatable:    true,
		DependsOn:      []core.StepID{StepCreateSAMLProfile, StepCreateAppRegistration},
		Inputs: []core.InputDescriptor{
			{Key: OutEntityID, ProducedBy: StepCreateSAMLProfile},
			{Key: OutACSURL, ProducedBy: StepCreateSAMLProfile},
			{Key: OutAppID, ProducedBy: StepCreateAppRegistration},
		},
		Outputs: []core.OutputDescriptor{
			{Key: OutFederationConfigID, Description: "Id of the federation configuration object"},
		},
	}
}

func (s *configureFederationStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	cfg, err := s.microsoft.GetFederationConfig(ctx, sc.Domain)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("Federation configuration for %s not found", sc.Domain),
		}, nil
	}
	return &core.CheckResult{
		Completed:   true,
		Message:     fmt.Sprintf("Domain %s is federated with issuer %s", sc.Domain, cfg.IssuerURI),
		PreExisting: true,
	}, nil
}

func (s *configureFederationStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	required := []string{OutEntityID, OutACSURL, OutAppID}
	return WrapExecute(StepConfigureFederation, required, func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		cfg := provider.FederationConfig{
			IssuerURI:        sc.StringOutput(OutEntityID),
			PassiveSignInURI: sc.StringOutput(OutACSURL),
			PreferredAuthenticationProtocol: "saml",
		}
		out, err := s.microsoft.SetFederationConfig(ctx, sc.Domain, cfg)
		if err != nil {
			return nil, err
		}
		return &core.ExecutionResult{
			Success: true,
			Outputs: map[string]interface{}{
				OutFederationConfigID: out.ID,
			},
		}, nil
	})(ctx, sc)
}
