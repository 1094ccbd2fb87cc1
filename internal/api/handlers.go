package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

// stepView is one step in the list response: its definition joined with
// current status.
type stepView struct {
	core.StepDefinition
	Status core.StepStatusInfo `json:"status_info"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.validator.Validate(r.Context()))
}

func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	statuses := s.store.Steps()

	views := make([]stepView, 0, len(s.registry.IDs()))
	for _, def := range s.registry.Definitions() {
		info, ok := statuses[def.ID]
		if !ok {
			info = core.StepStatusInfo{Status: core.StepStatusPending}
		}
		views = append(views, stepView{StepDefinition: def, Status: info})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"domain":    s.store.Domain(),
		"tenant_id": s.store.TenantID(),
		"steps":     views,
	})
}

// stepID resolves the path parameter against the registry, answering 404
// for ids the registry doesn't know.
func (s *Server) stepID(w http.ResponseWriter, r *http.Request) (core.StepID, bool) {
	id := core.StepID(chi.URLParam(r, "id"))
	if _, ok := s.registry.Get(id); !ok {
		respondError(w, http.StatusNotFound, "unknown step id")
		return "", false
	}
	return id, true
}

func (s *Server) handleCheckStep(w http.ResponseWriter, r *http.Request) {
	id, ok := s.stepID(w, r)
	if !ok {
		return
	}

	result, err := s.run.RunCheck(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExecuteStep(w http.ResponseWriter, r *http.Request) {
	id, ok := s.stepID(w, r)
	if !ok {
		return
	}

	result, err := s.run.HandleExecute(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.stepID(w, r)
	if !ok {
		return
	}

	if err := s.store.MarkStepComplete(r.Context(), id, core.CompletionUserMarked, nil); err != nil {
		s.respondDomainError(w, err)
		return
	}
	info, _ := s.store.StepInfo(id)
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleMarkIncomplete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.stepID(w, r)
	if !ok {
		return
	}

	if err := s.store.MarkStepIncomplete(r.Context(), id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	info, _ := s.store.StepInfo(id)
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	// The run mutates state as it goes; clients follow along on the
	// events stream. The response reports only the final verdict.
	err := s.run.RunAllPending(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"completed": err == nil,
		"steps":     s.store.Steps(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.checker.ManualRefresh(r.Context()); err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"steps": s.store.Steps()})
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Outputs())
}

func (s *Server) handleCurrentError(w http.ResponseWriter, r *http.Request) {
	current := s.errs.Current()
	if current == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"error": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"error": current})
}

func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request) {
	s.errs.Clear()
	w.WriteHeader(http.StatusNoContent)
}
