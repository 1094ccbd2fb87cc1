package core

import (
	"testing"
	"time"
)

func TestMigrateStatusInfo_EmptyStatus(t *testing.T) {
	got := MigrateStatusInfo(StepStatusInfo{})
	if got.Status != StepStatusPending {
		t.Errorf("Status = %v, want pending", got.Status)
	}
}

func TestMigrateStatusInfo_LegacyCompleted(t *testing.T) {
	tests := []struct {
		name string
		in   StepStatusInfo
		want CompletionType
	}{
		{
			"pre-existing resource is server-verified",
			StepStatusInfo{Status: StepStatusCompleted, Metadata: &StatusMetadata{PreExisting: true}},
			CompletionServerVerified,
		},
		{
			"no metadata defaults to user-marked",
			StepStatusInfo{Status: StepStatusCompleted},
			CompletionUserMarked,
		},
		{
			"existing completion type preserved",
			StepStatusInfo{Status: StepStatusCompleted, CompletionType: CompletionServerVerified},
			CompletionServerVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MigrateStatusInfo(tt.in)
			if got.CompletionType != tt.want {
				t.Errorf("CompletionType = %v, want %v", got.CompletionType, tt.want)
			}
		})
	}
}

func TestMigrateStatusInfo_ClearsCompletionTypeWhenNotCompleted(t *testing.T) {
	got := MigrateStatusInfo(StepStatusInfo{
		Status:         StepStatusPending,
		CompletionType: CompletionUserMarked,
	})
	if got.CompletionType != "" {
		t.Errorf("CompletionType = %v, want empty", got.CompletionType)
	}
}

func TestStepStatusInfo_Clone(t *testing.T) {
	now := time.Now()
	orig := StepStatusInfo{
		Status:        StepStatusCompleted,
		LastCheckedAt: &now,
		Metadata:      &StatusMetadata{ResourceURL: "https://admin.google.com"},
	}

	cloned := orig.Clone()
	cloned.Metadata.ResourceURL = "mutated"
	*cloned.LastCheckedAt = now.Add(time.Hour)

	if orig.Metadata.ResourceURL != "https://admin.google.com" {
		t.Error("Clone() should not share metadata")
	}
	if !orig.LastCheckedAt.Equal(now) {
		t.Error("Clone() should not share timestamps")
	}
}
