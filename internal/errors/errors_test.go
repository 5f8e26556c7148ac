package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(StoreUnavailable, "cannot open store", cause)

	if err.Code != StoreUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, StoreUnavailable)
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestSentinelError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *SentinelError
		wantParts []string
	}{
		{
			name:      "with cause and path",
			err:       New(FileFailed, "read failed", errors.New("permission denied")).WithPath("src/a.cpp"),
			wantParts: []string{"FILE_FAILED", "src/a.cpp", "read failed", "permission denied"},
		},
		{
			name:      "without cause",
			err:       Newf(UnparsableContent, "content is empty"),
			wantParts: []string{"UNPARSABLE_CONTENT", "content is empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestIsCode_Wrapped(t *testing.T) {
	base := Newf(UnparsableContent, "embedded NUL byte")
	wrapped := fmt.Errorf("parse main.cpp: %w", base)

	if !IsCode(wrapped, UnparsableContent) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
	if IsCode(wrapped, ParserFailure) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), UnparsableContent) {
		t.Error("plain errors carry no code")
	}
}

func TestWithDetails(t *testing.T) {
	err := Newf(InvalidDefinition, "bad role").WithDetails(map[string]string{"pattern": "singleton"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["pattern"] != "singleton" {
		t.Errorf("Details = %#v", err.Details)
	}
}

func TestGetSuggestedFixes_Unknown(t *testing.T) {
	if fixes := GetSuggestedFixes(ResolutionMiss); fixes != nil {
		t.Errorf("expected no fixes, got %v", fixes)
	}
}
