package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/cache"
)

// Default Google API hosts. The endpoint paths below are the fixed
// external surface of the directory provider.
const (
	DefaultGoogleAdminBaseURL         = "https://admin.googleapis.com"
	DefaultGoogleCloudIdentityBaseURL = "https://cloudidentity.googleapis.com"
)

const googleCacheTTL = 30 * time.Second

// GoogleErrorHook is the provider error translator for Google: 403s that
// indicate a disabled cloud API are rewritten into actionable enablement
// errors; everything else passes through.
func GoogleErrorHook(err error) error {
	if IsAPIEnablementError(err) {
		return CreateEnablementError(err)
	}
	return err
}

// OrgUnit is a Google Workspace organizational unit.
type OrgUnit struct {
	OrgUnitID         string `json:"orgUnitId"`
	Name              string `json:"name"`
	OrgUnitPath       string `json:"orgUnitPath"`
	ParentOrgUnitPath string `json:"parentOrgUnitPath,omitempty"`
	Description       string `json:"description,omitempty"`
}

// DirectoryUser is a Google Workspace user account.
type DirectoryUser struct {
	ID           string `json:"id,omitempty"`
	PrimaryEmail string `json:"primaryEmail"`
	OrgUnitPath  string `json:"orgUnitPath,omitempty"`
	IsAdmin      bool   `json:"isAdmin,omitempty"`
	Suspended    bool   `json:"suspended,omitempty"`
}

// RoleAssignment is a Google admin role assignment.
type RoleAssignment struct {
	RoleAssignmentID string `json:"roleAssignmentId,omitempty"`
	RoleID           string `json:"roleId"`
	AssignedTo       string `json:"assignedTo"`
	ScopeType        string `json:"scopeType"`
}

// SAMLProfile is a Cloud Identity inbound SAML SSO profile.
type SAMLProfile struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName"`
	Customer    string `json:"customer,omitempty"`
	IdpConfig   struct {
		EntityID    string `json:"entityId,omitempty"`
		SingleSignOnServiceURI string `json:"singleSignOnServiceUri,omitempty"`
	} `json:"idpConfig,omitempty"`
	SpConfig struct {
		EntityID           string `json:"entityId,omitempty"`
		AssertionConsumerServiceURI string `json:"assertionConsumerServiceUri,omitempty"`
	} `json:"spConfig,omitempty"`
}

// GoogleService exposes the directory operations the setup steps need,
// routing reads through the request cache.
type GoogleService struct {
	dir   *Client
	idp   *Client
	cache *cache.RequestCache
	ttl   time.Duration
}

// NewGoogleService creates a Google service over the Admin SDK and Cloud
// Identity clients.
func NewGoogleService(dir, idp *Client, rc *cache.RequestCache) *GoogleService {
	return &GoogleService{
		dir:   dir,
		idp:   idp,
		cache: rc,
		ttl:   googleCacheTTL,
	}
}

// ListOrgUnits lists all organizational units for the customer.
func (s *GoogleService) ListOrgUnits(ctx context.Context) ([]OrgUnit, error) {
	v, err := s.cache.Do(ctx, "google:orgunits", s.ttl, func(ctx context.Context) (interface{}, error) {
		return s.dir.Get(ctx, "/admin/directory/v1/customer/my_customer/orgunits?type=all")
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		OrganizationUnits []OrgUnit `json:"organizationUnits"`
	}
	if err := decodeInto(v, &resp); err != nil {
		return nil, err
	}
	return resp.OrganizationUnits, nil
}

// FindOrgUnit returns the org unit with the given path, or nil.
func (s *GoogleService) FindOrgUnit(ctx context.Context, path string) (*OrgUnit, error) {
	units, err := s.ListOrgUnits(ctx)
	if err != nil {
		return nil, err
	}
	for i := range units {
		if units[i].OrgUnitPath == path {
			return &units[i], nil
		}
	}
	return nil, nil
}

// CreateOrgUnit creates an organizational unit under parentPath.
func (s *GoogleService) CreateOrgUnit(ctx context.Context, name, parentPath, description string) (*OrgUnit, error) {
	v, err := s.dir.Post(ctx, "/admin/directory/v1/customer/my_customer/orgunits", map[string]interface{}{
		"name":              name,
		"parentOrgUnitPath": parentPath,
		"description":       description,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Forget("google:orgunits")

	var ou OrgUnit
	if err := decodeInto(v, &ou); err != nil {
		return nil, err
	}
	return &ou, nil
}

// GetUser fetches a user by primary email. A 404 yields (nil, nil).
func (s *GoogleService) GetUser(ctx context.Context, email string) (*DirectoryUser, error) {
	v, err := s.dir.Get(ctx, "/admin/directory/v1/users/"+url.PathEscape(email))
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == 404 {
			return nil, nil
		}
		return nil, err
	}

	var u DirectoryUser
	if err := decodeInto(v, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser provisions a directory user.
func (s *GoogleService) CreateUser(ctx context.Context, email, orgUnitPath, password string) (*DirectoryUser, error) {
	v, err := s.dir.Post(ctx, "/admin/directory/v1/users", map[string]interface{}{
		"primaryEmail": email,
		"orgUnitPath":  orgUnitPath,
		"password":     password,
		"name": map[string]string{
			"givenName":  "Federation",
			"familyName": "Automation",
		},
	})
	if err != nil {
		return nil, err
	}

	var u DirectoryUser
	if err := decodeInto(v, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListRoleAssignments lists admin role assignments for a user key.
func (s *GoogleService) ListRoleAssignments(ctx context.Context, userKey string) ([]RoleAssignment, error) {
	key := "google:roleassignments:" + userKey
	v, err := s.cache.Do(ctx, key, s.ttl, func(ctx context.Context) (interface{}, error) {
		return s.dir.Get(ctx,
			"/admin/directory/v1/customer/my_customer/roleassignments?userKey="+url.QueryEscape(userKey))
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []RoleAssignment `json:"items"`
	}
	if err := decodeInto(v, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AssignRole assigns an admin role to a user.
func (s *GoogleService) AssignRole(ctx context.Context, roleID, userID string) (*RoleAssignment, error) {
	v, err := s.dir.Post(ctx, "/admin/directory/v1/customer/my_customer/roleassignments", map[string]interface{}{
		"roleId":     roleID,
		"assignedTo": userID,
		"scopeType":  "CUSTOMER",
	})
	if err != nil {
		return nil, err
	}

	var ra RoleAssignment
	if err := decodeInto(v, &ra); err != nil {
		return nil, err
	}
	return &ra, nil
}

// ListSAMLProfiles lists inbound SAML SSO profiles.
func (s *GoogleService) ListSAMLProfiles(ctx context.Context) ([]SAMLProfile, error) {
	v, err := s.cache.Do(ctx, "google:samlprofiles", s.ttl, func(ctx context.Context) (interface{}, error) {
		return s.idp.Get(ctx, "/v1/inboundSamlSsoProfiles")
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		InboundSamlSsoProfiles []SAMLProfile `json:"inboundSamlSsoProfiles"`
	}
	if err := decodeInto(v, &resp); err != nil {
		return nil, err
	}
	return resp.InboundSamlSsoProfiles, nil
}

// CreateSAMLProfile creates an inbound SAML SSO profile.
func (s *GoogleService) CreateSAMLProfile(ctx context.Context, displayName string) (*SAMLProfile, error) {
	v, err := s.idp.Post(ctx, "/v1/inboundSamlSsoProfiles", map[string]interface{}{
		"displayName": displayName,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Forget("google:samlprofiles")

	var p SAMLProfile
	if err := decodeInto(v, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AdminConsoleOrgUnitURL is the console link recorded as a step's resource URL.
func AdminConsoleOrgUnitURL(ouID string) string {
	return fmt.Sprintf("https://admin.google.com/ac/orgunits?org=%s", url.QueryEscape(ouID))
}

// AsAPIError extracts a typed APIError if err carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// decodeInto converts a parsed JSON value into a typed struct.
func decodeInto(v interface{}, out interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("re-encoding response: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
