package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
)

// Output keys accumulated across the walkthrough. Namespaced per step by
// convention; no two steps produce the same key.
const (
	OutAutomationOUID        = "AUTOMATION_OU_ID"
	OutAutomationOUPath      = "AUTOMATION_OU_PATH"
	OutProvisioningUserID    = "PROVISIONING_USER_ID"
	OutProvisioningUserEmail = "PROVISIONING_USER_EMAIL"
	OutRoleAssignmentID      = "ROLE_ASSIGNMENT_ID"
	OutSAMLProfileID         = "SAML_PROFILE_ID"
	OutEntityID              = "ENTITY_ID"
	OutACSURL                = "ACS_URL"
	OutAppID                 = "APP_ID"
	OutAppObjectID           = "APP_OBJECT_ID"
	OutServicePrincipalID    = "SERVICE_PRINCIPAL_ID"
	OutFederationConfigID    = "FEDERATION_CONFIG_ID"
)

// Step ids in walkthrough order.
const (
	StepCreateAutomationOU     core.StepID = "G-1"
	StepCreateProvisioningUser core.StepID = "G-2"
	StepAssignAdminRole        core.StepID = "G-3"
	StepCreateSAMLProfile      core.StepID = "G-4"
	StepVerifyDomain           core.StepID = "M-1"
	StepCreateAppRegistration  core.StepID = "M-2"
	StepCreateServicePrincipal core.StepID = "M-3"
	StepConfigureFederation    core.StepID = "M-4"
)

const (
	automationOUName = "Automation"
	automationOUPath = "/Automation"

	// Directory role granted to the provisioning account.
	userManagementAdminRole = "USER_MANAGEMENT_ADMIN"

	samlProfileDisplayName = "Microsoft Entra Federation"
)

// provisioningUserEmail derives the service account address for a domain.
func provisioningUserEmail(domain string) string {
	return "federation-automation@" + domain
}

// createAutomationOUStep provisions the organizational unit that holds the
// automation service account.
type createAutomationOUStep struct {
	google *provider.GoogleService
}

func (s *createAutomationOUStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepCreateAutomationOU,
		Title:       "Create Automation organizational unit",
		Description: "Creates a dedicated organizational unit in the Google Workspace directory for automation accounts.",
		Details: "The Automation organizational unit isolates the provisioning service account " +
			"from regular users so that directory policies can be scoped to it independently.",
		Category:       "Directory",
		Activity:       "Provisioning",
		Provider:       core.ProviderGoogle,
		Automatability: core.AutomatabilityAutomated,
		Automatable:    true,
		Outputs: []core.OutputDescriptor{
			{Key: OutAutomationOUID, Description: "Directory id of the Automation organizational unit"},
			{Key: OutAutomationOUPath, Description: "Full path of the Automation organizational unit"},
		},
	}
}

func (s *createAutomationOUStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	ou, err := s.google.FindOrgUnit(ctx, automationOUPath)
	if err != nil {
		return nil, err
	}
	if ou == nil {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("Organizational unit %s not found", automationOUPath),
		}, nil
	}

	sc.Log().Info("automation OU already present", "ou_id", ou.OrgUnitID)
	return &core.CheckResult{
		Completed: true,
		Message:   fmt.Sprintf("Organizational unit %s exists", ou.OrgUnitPath),
		Outputs: map[string]interface{}{
			OutAutomationOUID:   ou.OrgUnitID,
			OutAutomationOUPath: ou.OrgUnitPath,
		},
		ResourceURL: provider.AdminConsoleOrgUnitURL(ou.OrgUnitID),
		PreExisting: true,
	}, nil
}

func (s *createAutomationOUStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	return WrapExecute(StepCreateAutomationOU, nil, func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		ou, err := s.google.CreateOrgUnit(ctx, automationOUName, "/", "Federation automation accounts")
		if err != nil {
			return nil, err
		}
		return &core.ExecutionResult{
			Success: true,
			Outputs: map[string]interface{}{
				OutAutomationOUID:   ou.OrgUnitID,
				OutAutomationOUPath: ou.OrgUnitPath,
			},
			ResourceURL: provider.AdminConsoleOrgUnitURL(ou.OrgUnitID),
		}, nil
	})(ctx, sc)
}

// createProvisioningUserStep creates the service account inside the
// Automation OU.
type createProvisioningUserStep struct {
	google *provider.GoogleService
}

func (s *createProvisioningUserStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepCreateProvisioningUser,
		Title:       "Create provisioning service account",
		Description: "Creates the directory user that the identity platform uses for provisioning.",
		Category:       "Directory",
		Activity:       "Provisioning",
		Provider:       core.ProviderGoogle,
		Automatability: core.AutomatabilityAutomated,
		Automatable:    true,
		DependsOn:      []core.StepID{StepCreateAutomationOU},
		Inputs: []core.InputDescriptor{
			{Key: OutAutomationOUPath, ProducedBy: StepCreateAutomationOU},
		},
		Outputs: []core.OutputDescriptor{
			{Key: OutProvisioningUserID},
			{Key: OutProvisioningUserEmail},
		},
	}
}

func (s *createProvisioningUserStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	email := provisioningUserEmail(sc.Domain)
	u, err := s.google.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("Provisioning account %s not found", email),
		}, nil
	}
	if u.Suspended {
		return &core.CheckResult{
			Completed: false,
			Message:   fmt.Sprintf("Provisioning account %s exists but is suspended", email),
		}, nil
	}

	return &core.CheckResult{
		Completed: true,
		Message:   fmt.Sprintf("Provisioning account %s exists", email),
		Outputs: map[string]interface{}{
			OutProvisioningUserID:    u.ID,
			OutProvisioningUserEmail: u.PrimaryEmail,
		},
		PreExisting: true,
	}, nil
}

func (s *createProvisioningUserStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	return WrapExecute(StepCreateProvisioningUser, []string{OutAutomationOUPath}, func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		email := provisioningUserEmail(sc.Domain)
		// One-time password; the account is accessed via OAuth, never
		// interactively.
		u, err := s.google.CreateUser(ctx, email, sc.StringOutput(OutAutomationOUPath), uuid.NewString())
		if err != nil {
			return nil, err
		}
		return &core.ExecutionResult{
			Success: true,
			Outputs: map[string]interface{}{
				OutProvisioningUserID:    u.ID,
				OutProvisioningUserEmail: u.PrimaryEmail,
			},
		}, nil
	})(ctx, sc)
}

// assignAdminRoleStep grants the provisioning account its directory role.
type assignAdminRoleStep struct {
	google *provider.GoogleService
}

func (s *assignAdminRoleStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepAssignAdminRole,
		Title:       "Assign admin role to provisioning account",
		Description: "Grants the user-management admin role so the identity platform can manage directory users.",
		Category:       "Directory",
		Activity:       "Authorization",
		Provider:       core.ProviderGoogle,
		Automatability: core.AutomatabilityAutomated,
		Automatable:    true,
		DependsOn:      []core.StepID{StepCreateProvisioningUser},
		Inputs: []core.InputDescriptor{
			{Key: OutProvisioningUserID, ProducedBy: StepCreateProvisioningUser},
			{Key: OutProvisioningUserEmail, ProducedBy: StepCreateProvisioningUser},
		},
		Outputs: []core.OutputDescriptor{
			{Key: OutRoleAssignmentID},
		},
	}
}

func (s *assignAdminRoleStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	email := sc.StringOutput(OutProvisioningUserEmail)
	if email == "" {
		return &core.CheckResult{
			Completed: false,
			Message:   "Provisioning account not yet created",
		}, nil
	}

	assignments, err := s.google.ListRoleAssignments(ctx, email)
	if err != nil {
		return nil, err
	}
	for _, ra := range assignments {
		if ra.RoleID == userManagementAdminRole {
			return &core.CheckResult{
				Completed: true,
				Message:   fmt.Sprintf("Role already assigned to %s", email),
				Outputs: map[string]interface{}{
					OutRoleAssignmentID: ra.RoleAssignmentID,
				},
				PreExisting: true,
			}, nil
		}
	}
	return &core.CheckResult{
		Completed: false,
		Message:   fmt.Sprintf("Admin role not found on %s", email),
	}, nil
}

func (s *assignAdminRoleStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	return WrapExecute(StepAssignAdminRole, []string{OutProvisioningUserID}, func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		ra, err := s.google.AssignRole(ctx, userManagementAdminRole, sc.StringOutput(OutProvisioningUserID))
		if err != nil {
			return nil, err
		}
		return &core.ExecutionResult{
			Success: true,
			Outputs: map[string]interface{}{
				OutRoleAssignmentID: ra.RoleAssignmentID,
			},
		}, nil
	})(ctx, sc)
}

// createSAMLProfileStep creates the inbound SAML SSO profile whose service
// provider details are later mirrored into the identity platform.
type createSAMLProfileStep struct {
	google *provider.GoogleService
}

func (s *createSAMLProfileStep) Definition() core.StepDefinition {
	return core.StepDefinition{
		ID:          StepCreateSAMLProfile,
		Title:       "Create SAML federation profile",
		Description: "Creates the inbound SAML SSO profile in the directory.",
		Details: "The profile's service-provider entity id and assertion consumer URL are the " +
			"values the identity platform's federation configuration must point at.",
		Category:       "Federation",
		Activity:       "SSO",
		Provider:       core.ProviderGoogle,
		Automatability: core.AutomatabilityAutomated,
		Automatable:    true,
		DependsOn:      []core.StepID{StepCreateAutomationOU},
		Outputs: []core.OutputDescriptor{
			{Key: OutSAMLProfileID},
			{Key: OutEntityID, Description: "Service-provider entity id"},
			{Key: OutACSURL, Description: "Assertion consumer service URL"},
		},
	}
}

func samlProfileOutputs(p *provider.SAMLProfile) map[string]interface{} {
	return map[string]interface{}{
		OutSAMLProfileID: p.Name,
		OutEntityID:      p.SpConfig.EntityID,
		OutACSURL:        p.SpConfig.AssertionConsumerServiceURI,
	}
}

func (s *createSAMLProfileStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	profiles, err := s.google.ListSAMLProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].DisplayName == samlProfileDisplayName {
			return &core.CheckResult{
				Completed:   true,
				Message:     "SAML federation profile exists",
				Outputs:     samlProfileOutputs(&profiles[i]),
				PreExisting: true,
			}, nil
		}
	}
	return &core.CheckResult{
		Completed: false,
		Message:   "SAML federation profile not found",
	}, nil
}

func (s *createSAMLProfileStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	return WrapExecute(StepCreateSAMLProfile, nil, func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		p, err := s.google.CreateSAMLProfile(ctx, samlProfileDisplayName)
		if err != nil {
			return nil, err
		}
		return &core.ExecutionResult{
			Success: true,
			Outputs: samlProfileOutputs(p),
		}, nil
	})(ctx, sc)
}
