package api

import (
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
)

// httpStatusFor maps engine errors onto HTTP statuses. Upstream statuses
// carried by api-category errors win over the category default.
func httpStatusFor(err error) int {
	var authErr *provider.AuthenticationError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 400 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	}

	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		switch domErr.Category {
		case core.ErrCatAuth:
			return http.StatusUnauthorized
		case core.ErrCatValidation:
			return http.StatusUnprocessableEntity
		case core.ErrCatAPI:
			if domErr.Status >= 400 {
				return domErr.Status
			}
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}

	return http.StatusInternalServerError
}

// respondDomainError classifies the error and writes it with its mapped
// status.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	me := s.errs.Handle(err)
	respondJSON(w, httpStatusFor(err), map[string]interface{}{"error": me})
}
