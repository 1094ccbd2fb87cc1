package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/errmgr"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/session"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/state"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/steps"
)

// scriptedStep is a test double whose execute behavior is programmable.
type scriptedStep struct {
	def      core.StepDefinition
	check    func(sc *core.StepContext) (*core.CheckResult, error)
	execute  func(sc *core.StepContext) (*core.ExecutionResult, error)
	executed *int
}

func (s *scriptedStep) Definition() core.StepDefinition { return s.def }

func (s *scriptedStep) Check(ctx context.Context, sc *core.StepContext) (*core.CheckResult, error) {
	if s.check == nil {
		return &core.CheckResult{Completed: false}, nil
	}
	return s.check(sc)
}

func (s *scriptedStep) Execute(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
	if s.executed != nil {
		*s.executed++
	}
	if s.execute == nil {
		return &core.ExecutionResult{Success: true}, nil
	}
	return s.execute(sc)
}

func automatable(id core.StepID, p core.Provider) core.StepDefinition {
	return core.StepDefinition{ID: id, Provider: p, Automatable: true}
}

func fullSession() core.SessionSource {
	return core.SessionSourceFunc(func(ctx context.Context) (*core.Session, error) {
		return &core.Session{
			HasGoogleAuth:    true,
			HasMicrosoftAuth: true,
			GoogleToken:      "g",
			MicrosoftToken:   "m",
		}, nil
	})
}

func googleOnlySession() core.SessionSource {
	return core.SessionSourceFunc(func(ctx context.Context) (*core.Session, error) {
		return &core.Session{HasGoogleAuth: true, GoogleToken: "g"}, nil
	})
}

func newTestRunner(t *testing.T, source core.SessionSource, stepList ...core.Step) (*Runner, *state.Store, *errmgr.Manager) {
	t.Helper()
	store := state.NewStore()
	if err := store.SetDomain(context.Background(), "example.com", "tenant-1"); err != nil {
		t.Fatalf("SetDomain() error = %v", err)
	}
	registry := steps.NewRegistry(nil, stepList...)
	validator := session.NewValidator(source, session.NewTokenStore())
	errs := errmgr.NewManager()
	return NewRunner(registry, store, validator, errs), store, errs
}

func TestRunAllPending_FailFast(t *testing.T) {
	executedB := 0
	a := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		execute: func(sc *core.StepContext) (*core.ExecutionResult, error) {
			return &core.ExecutionResult{
				Success: false,
				Error:   &core.StepError{Code: "SOME_ERROR", Message: "upstream rejected"},
			}, nil
		},
	}
	b := &scriptedStep{def: automatable("A-2", core.ProviderGoogle), executed: &executedB}

	r, store, _ := newTestRunner(t, fullSession(), a, b)

	if err := r.RunAllPending(context.Background()); err == nil {
		t.Error("RunAllPending() = nil, want error after failure")
	}

	infoA, _ := store.StepInfo("A-1")
	if infoA.Status != core.StepStatusFailed {
		t.Errorf("A-1 status = %s, want failed", infoA.Status)
	}
	if executedB != 0 {
		t.Error("A-2 was attempted after A-1 failed")
	}
}

func TestRunAllPending_SequentialOutputFlow(t *testing.T) {
	var seenByB interface{}
	a := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		execute: func(sc *core.StepContext) (*core.ExecutionResult, error) {
			return &core.ExecutionResult{
				Success: true,
				Outputs: map[string]interface{}{"KEY": "from-a"},
			}, nil
		},
	}
	b := &scriptedStep{
		def: automatable("A-2", core.ProviderGoogle),
		execute: func(sc *core.StepContext) (*core.ExecutionResult, error) {
			seenByB, _ = sc.Output("KEY")
			return &core.ExecutionResult{Success: true}, nil
		},
	}

	r, store, _ := newTestRunner(t, fullSession(), a, b)
	if err := r.RunAllPending(context.Background()); err != nil {
		t.Fatalf("RunAllPending() error = %v", err)
	}

	if seenByB != "from-a" {
		t.Errorf("A-2 saw output %v, want from-a", seenByB)
	}
	for _, id := range []core.StepID{"A-1", "A-2"} {
		info, _ := store.StepInfo(id)
		if info.Status != core.StepStatusCompleted || info.CompletionType != core.CompletionServerVerified {
			t.Errorf("%s = %+v, want server-verified completed", id, info)
		}
	}
}

func TestRunAllPending_SkipsCompletedAndNonAutomatable(t *testing.T) {
	executedManual, executedDone := 0, 0
	manual := &scriptedStep{
		def:      core.StepDefinition{ID: "M-1", Provider: core.ProviderMicrosoft, Automatable: false},
		executed: &executedManual,
	}
	done := &scriptedStep{def: automatable("A-1", core.ProviderGoogle), executed: &executedDone}

	r, store, _ := newTestRunner(t, fullSession(), manual, done)
	store.MarkStepComplete(context.Background(), "A-1", core.CompletionUserMarked, nil)

	if err := r.RunAllPending(context.Background()); err != nil {
		t.Fatalf("RunAllPending() error = %v", err)
	}
	if executedManual != 0 || executedDone != 0 {
		t.Errorf("executions = manual %d, done %d; want 0, 0", executedManual, executedDone)
	}
}

func TestRunAllPending_UnauthorizedProviderSkipped(t *testing.T) {
	executedMS, executedG := 0, 0
	ms := &scriptedStep{def: automatable("M-1", core.ProviderMicrosoft), executed: &executedMS}
	g := &scriptedStep{def: automatable("A-1", core.ProviderGoogle), executed: &executedG}

	r, _, errs := newTestRunner(t, googleOnlySession(), ms, g)
	if err := r.RunAllPending(context.Background()); err != nil {
		t.Fatalf("RunAllPending() error = %v", err)
	}

	if executedMS != 0 {
		t.Error("Microsoft step ran without Microsoft auth")
	}
	if executedG != 1 {
		t.Errorf("Google step executed %d times, want 1", executedG)
	}

	current := errs.Current()
	if current == nil || !strings.Contains(current.Message, "Microsoft") {
		t.Errorf("dispatched error = %+v, want Microsoft sign-in prompt", current)
	}
}

func TestHandleExecute_GateShortCircuits(t *testing.T) {
	executed := 0
	ms := &scriptedStep{def: automatable("M-1", core.ProviderMicrosoft), executed: &executed}

	r, _, errs := newTestRunner(t, googleOnlySession(), ms)
	if _, err := r.HandleExecute(context.Background(), "M-1"); err == nil {
		t.Error("HandleExecute() = nil, want auth error")
	}
	if executed != 0 {
		t.Error("step ran despite failed gate")
	}
	if errs.Current() == nil {
		t.Error("gate failure not dispatched")
	}
}

func TestHandleExecute_AuthExpiredFailureDispatched(t *testing.T) {
	step := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		execute: func(sc *core.StepContext) (*core.ExecutionResult, error) {
			return &core.ExecutionResult{
				Success: false,
				Error: &core.StepError{
					Code:     core.CodeAuthExpired,
					Message:  "Authentication expired. Please sign in again.",
					Provider: core.ProviderGoogle,
				},
			}, nil
		},
	}

	r, store, errs := newTestRunner(t, fullSession(), step)
	res, err := r.HandleExecute(context.Background(), "A-1")
	if err != nil {
		t.Fatalf("HandleExecute() error = %v", err)
	}
	if res.Success {
		t.Error("Success = true, want false")
	}

	info, _ := store.StepInfo("A-1")
	if info.Status != core.StepStatusFailed {
		t.Errorf("status = %s, want failed", info.Status)
	}
	current := errs.Current()
	if current == nil || current.Code != core.CodeAuthExpired || current.Category != core.ErrCatAuth {
		t.Errorf("dispatched = %+v, want AUTH_EXPIRED auth error", current)
	}
}

func TestHandleExecute_FailureKeepsCheckRecord(t *testing.T) {
	step := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		check: func(sc *core.StepContext) (*core.CheckResult, error) {
			return &core.CheckResult{
				Completed:   true,
				ResourceURL: "https://admin.google.com/ac/orgunits",
			}, nil
		},
		execute: func(sc *core.StepContext) (*core.ExecutionResult, error) {
			return &core.ExecutionResult{
				Success: false,
				Error:   &core.StepError{Code: "SOME_ERROR", Message: "upstream rejected"},
			}, nil
		},
	}

	r, store, _ := newTestRunner(t, fullSession(), step)
	if _, err := r.RunCheck(context.Background(), "A-1"); err != nil {
		t.Fatalf("RunCheck() error = %v", err)
	}
	if _, err := r.HandleExecute(context.Background(), "A-1"); err != nil {
		t.Fatalf("HandleExecute() error = %v", err)
	}

	info, _ := store.StepInfo("A-1")
	if info.Status != core.StepStatusFailed {
		t.Errorf("status = %s, want failed", info.Status)
	}
	if info.LastCheckedAt == nil {
		t.Error("check timestamp lost across a failed execution")
	}
	if info.Metadata == nil || info.Metadata.ResourceURL == "" {
		t.Error("resource metadata lost across a failed execution")
	}
	if info.Error != "upstream rejected" {
		t.Errorf("error = %q, want upstream rejected", info.Error)
	}
}

func TestRunner_RequiresDomain(t *testing.T) {
	checked, executed := 0, 0
	step := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		check: func(sc *core.StepContext) (*core.CheckResult, error) {
			checked++
			return &core.CheckResult{Completed: false}, nil
		},
		executed: &executed,
	}

	store := state.NewStore()
	registry := steps.NewRegistry(nil, step)
	validator := session.NewValidator(fullSession(), session.NewTokenStore())
	r := NewRunner(registry, store, validator, errmgr.NewManager())

	if _, err := r.RunCheck(context.Background(), "A-1"); !core.IsCategory(err, core.ErrCatValidation) {
		t.Errorf("RunCheck() error = %v, want validation error", err)
	}
	if _, err := r.HandleExecute(context.Background(), "A-1"); !core.IsCategory(err, core.ErrCatValidation) {
		t.Errorf("HandleExecute() error = %v, want validation error", err)
	}
	if err := r.RunAllPending(context.Background()); !core.IsCategory(err, core.ErrCatValidation) {
		t.Errorf("RunAllPending() error = %v, want validation error", err)
	}

	var domErr *core.DomainError
	_, err := r.RunCheck(context.Background(), "A-1")
	if !errors.As(err, &domErr) || domErr.Code != core.CodeValidationError {
		t.Errorf("code = %v, want VALIDATION_ERROR", err)
	}
	if checked != 0 || executed != 0 {
		t.Errorf("steps ran without a domain: checks %d, executions %d", checked, executed)
	}
}

func TestRunCheck_CompletedAppliesOutputsAndMetadata(t *testing.T) {
	step := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		check: func(sc *core.StepContext) (*core.CheckResult, error) {
			return &core.CheckResult{
				Completed:   true,
				Outputs:     map[string]interface{}{"AUTOMATION_OU_ID": "ou-123"},
				ResourceURL: "https://admin.google.com/ac/orgunits",
				PreExisting: true,
			}, nil
		},
	}

	r, store, _ := newTestRunner(t, fullSession(), step)
	res, err := r.RunCheck(context.Background(), "A-1")
	if err != nil {
		t.Fatalf("RunCheck() error = %v", err)
	}
	if !res.Completed {
		t.Fatal("Completed = false")
	}

	info, _ := store.StepInfo("A-1")
	if info.Status != core.StepStatusCompleted || info.CompletionType != core.CompletionServerVerified {
		t.Errorf("info = %+v", info)
	}
	if info.Metadata == nil || !info.Metadata.PreExisting {
		t.Errorf("metadata = %+v, want preExisting", info.Metadata)
	}
	if v, _ := store.Output("AUTOMATION_OU_ID"); v != "ou-123" {
		t.Errorf("output = %v", v)
	}
}

func TestRunCheck_PreservesUserAttestation(t *testing.T) {
	step := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		check: func(sc *core.StepContext) (*core.CheckResult, error) {
			return &core.CheckResult{Completed: false, Message: "not found"}, nil
		},
	}

	r, store, _ := newTestRunner(t, fullSession(), step)
	store.MarkStepComplete(context.Background(), "A-1", core.CompletionUserMarked, nil)

	if _, err := r.RunCheck(context.Background(), "A-1"); err != nil {
		t.Fatalf("RunCheck() error = %v", err)
	}
	info, _ := store.StepInfo("A-1")
	if info.Status != core.StepStatusCompleted || info.CompletionType != core.CompletionUserMarked {
		t.Errorf("info = %+v, attestation was revoked", info)
	}
}

func TestAutoChecker_NoOpWithoutConfiguration(t *testing.T) {
	checked := 0
	step := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		check: func(sc *core.StepContext) (*core.CheckResult, error) {
			checked++
			return &core.CheckResult{Completed: false}, nil
		},
	}

	store := state.NewStore()
	registry := steps.NewRegistry(nil, step)
	validator := session.NewValidator(fullSession(), session.NewTokenStore())
	r := NewRunner(registry, store, validator, errmgr.NewManager())
	a := NewAutoChecker(registry, store, r)

	if err := a.ManualRefresh(context.Background()); err != nil {
		t.Fatalf("ManualRefresh() error = %v", err)
	}
	if checked != 0 {
		t.Error("checks ran without domain/tenant configured")
	}
}

func TestAutoChecker_ChecksAllAutomatableSteps(t *testing.T) {
	checkedA, checkedB := 0, 0
	a := &scriptedStep{
		def: automatable("A-1", core.ProviderGoogle),
		check: func(sc *core.StepContext) (*core.CheckResult, error) {
			checkedA++
			return &core.CheckResult{Completed: true}, nil
		},
	}
	b := &scriptedStep{
		def: automatable("A-2", core.ProviderGoogle),
		check: func(sc *core.StepContext) (*core.CheckResult, error) {
			checkedB++
			return &core.CheckResult{Completed: false, Message: "not found"}, nil
		},
	}
	manual := &scriptedStep{def: core.StepDefinition{ID: "M-1", Automatable: false}}

	r, store, _ := newTestRunner(t, fullSession(), a, b, manual)
	checker := NewAutoChecker(steps.NewRegistry(nil, a, b, manual), store, r)

	if err := checker.ManualRefresh(context.Background()); err != nil {
		t.Fatalf("ManualRefresh() error = %v", err)
	}
	if checkedA != 1 || checkedB != 1 {
		t.Errorf("checks = %d, %d; want 1, 1", checkedA, checkedB)
	}

	infoA, _ := store.StepInfo("A-1")
	if infoA.Status != core.StepStatusCompleted {
		t.Errorf("A-1 status = %s", infoA.Status)
	}
	infoB, _ := store.StepInfo("A-2")
	if infoB.Status != core.StepStatusPending || infoB.LastCheckedAt == nil {
		t.Errorf("A-2 = %+v, want pending with timestamp", infoB)
	}
}
