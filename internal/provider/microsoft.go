package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/cache"
)

// DefaultMicrosoftGraphBaseURL is the Graph host; paths below are the
// fixed external surface of the enterprise identity platform.
const DefaultMicrosoftGraphBaseURL = "https://graph.microsoft.com/v1.0"

const microsoftCacheTTL = 30 * time.Second

// MicrosoftErrorHook is the provider error translator for Microsoft. Graph
// errors already arrive with a usable code envelope; nothing to enrich.
func MicrosoftErrorHook(err error) error {
	return err
}

// TenantDomain is a domain registered in the Microsoft tenant.
type TenantDomain struct {
	ID                 string `json:"id"`
	IsVerified         bool   `json:"isVerified"`
	IsDefault          bool   `json:"isDefault"`
	AuthenticationType string `json:"authenticationType"`
}

// Application is an Entra app registration.
type Application struct {
	ID          string `json:"id,omitempty"`
	AppID       string `json:"appId,omitempty"`
	DisplayName string `json:"displayName"`
	SignInAudience string `json:"signInAudience,omitempty"`
}

// ServicePrincipal is the tenant-local instance of an application.
type ServicePrincipal struct {
	ID    string `json:"id,omitempty"`
	AppID string `json:"appId"`
}

// FederationConfig is the internal federation configuration of a domain.
type FederationConfig struct {
	ID                     string `json:"id,omitempty"`
	IssuerURI              string `json:"issuerUri"`
	PassiveSignInURI       string `json:"passiveSignInUri"`
	MetadataExchangeURI    string `json:"metadataExchangeUri,omitempty"`
	SigningCertificate     string `json:"signingCertificate"`
	PreferredAuthenticationProtocol string `json:"preferredAuthenticationProtocol,omitempty"`
}

// MicrosoftService exposes the Graph operations the setup steps need,
// routing reads through the request cache.
type MicrosoftService struct {
	graph *Client
	cache *cache.RequestCache
	ttl   time.Duration
}

// NewMicrosoftService creates a Microsoft service over a Graph client.
func NewMicrosoftService(graph *Client, rc *cache.RequestCache) *MicrosoftService {
	return &MicrosoftService{
		graph: graph,
		cache: rc,
		ttl:   microsoftCacheTTL,
	}
}

// ListDomains lists the domains registered in the tenant.
func (s *MicrosoftService) ListDomains(ctx context.Context) ([]TenantDomain, error) {
	v, err := s.cache.Do(ctx, "microsoft:domains", s.ttl, func(ctx context.Context) (interface{}, error) {
		return s.graph.Get(ctx, "/domains")
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value []TenantDomain `json:"value"`
	}
	if err := decodeInto(v, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// GetDomain fetches one domain by name. A 404 yields (nil, nil).
func (s *MicrosoftService) GetDomain(ctx context.Context, domain string) (*TenantDomain, error) {
	v, err := s.graph.Get(ctx, "/domains/"+url.PathEscape(domain))
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == 404 {
			return nil, nil
		}
		return nil, err
	}

	var d TenantDomain
	if err := decodeInto(v, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// FindApplication returns the app registration with the given display
// name, or nil.
func (s *MicrosoftService) FindApplication(ctx context.Context, displayName string) (*Application, error) {
	filter := url.QueryEscape(fmt.Sprintf("displayName eq '%s'", displayName))
	v, err := s.cache.Do(ctx, "microsoft:applications:"+displayName, s.ttl, func(ctx context.Context) (interface{}, error) {
		return s.graph.Get(ctx, "/applications?$filter="+filter)
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value []Application `json:"value"`
	}
	if err := decodeInto(v, &resp); err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, nil
	}
	return &resp.Value[0], nil
}

// CreateApplication creates an app registration.
func (s *MicrosoftService) CreateApplication(ctx context.Context, displayName string) (*Application, error) {
	v, err := s.graph.Post(ctx, "/applications", map[string]interface{}{
		"displayName":    displayName,
		"signInAudience": "AzureADMyOrg",
	})
	if err != nil {
		return nil, err
	}
	s.cache.Forget("microsoft:applications:" + displayName)

	var app Application
	if err := decodeInto(v, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// CreateServicePrincipal instantiates an application in the tenant.
func (s *MicrosoftService) CreateServicePrincipal(ctx context.Context, appID string) (*ServicePrincipal, error) {
	v, err := s.graph.Post(ctx, "/servicePrincipals", map[string]interface{}{
		"appId": appID,
	})
	if err != nil {
		return nil, err
	}

	var sp ServicePrincipal
	if err := decodeInto(v, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// GetFederationConfig fetches the federation configuration of a domain.
// An empty collection yields (nil, nil).
func (s *MicrosoftService) GetFederationConfig(ctx context.Context, domain string) (*FederationConfig, error) {
	v, err := s.graph.Get(ctx, "/domains/"+url.PathEscape(domain)+"/federationConfiguration")
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == 404 {
			return nil, nil
		}
		return nil, err
	}

	var resp struct {
		Value []FederationConfig `json:"value"`
	}
	if err := decodeInto(v, &resp); err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, nil
	}
	return &resp.Value[0], nil
}

// SetFederationConfig writes the federation configuration for a domain.
func (s *MicrosoftService) SetFederationConfig(ctx context.Context, domain string, cfg FederationConfig) (*FederationConfig, error) {
	v, err := s.graph.Post(ctx, "/domains/"+url.PathEscape(domain)+"/federationConfiguration", cfg)
	if err != nil {
		return nil, err
	}

	var out FederationConfig
	if err := decodeInto(v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EntraConsoleAppURL is the portal link recorded as a step's resource URL.
func EntraConsoleAppURL(appID string) string {
	return "https://entra.microsoft.com/#view/Microsoft_AAD_RegisteredApps/ApplicationMenuBlade/~/Overview/appId/" + url.PathEscape(appID)
}
