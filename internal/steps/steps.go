package steps

import (
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
)

// NewDefaultRegistry wires the full federation walkthrough in order:
// directory provisioning first, then tenant-side verification and
// federation configuration.
func NewDefaultRegistry(logger *logging.Logger, google *provider.GoogleService, microsoft *provider.MicrosoftService) *Registry {
	return NewRegistry(logger,
		&createAutomationOUStep{google: google},
		&createProvisioningUserStep{google: google},
		&assignAdminRoleStep{google: google},
		&createSAMLProfileStep{google: google},
		&verifyDomainStep{microsoft: microsoft},
		&createAppRegistrationStep{microsoft: microsoft},
		&createServicePrincipalStep{microsoft: microsoft},
		&configureFederationStep{microsoft: microsoft},
	)
}
