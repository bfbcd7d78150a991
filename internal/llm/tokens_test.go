package llm

import (
	"strings"
	"testing"

	"github.com/andytango/builder-6/internal/result"
)

func TestModelLimit_KnownAndUnknown(t *testing.T) {
	if got := ModelLimit("gemini-pro"); got != 32760 {
		t.Fatalf("expected 32760, got %d", got)
	}
	if got := ModelLimit("claude-3-opus-20240229"); got != 200000 {
		t.Fatalf("expected 200000, got %d", got)
	}
	if got := ModelLimit("some-unlisted-model"); got != defaultLimit {
		t.Fatalf("expected default limit %d, got %d", defaultLimit, got)
	}
}

func TestCheckPromptSize_PromptTooLarge(t *testing.T) {
	prompt := strings.Repeat("x", 135000)
	_, err := CheckPromptSize(prompt, "gemini-pro")
	if err == nil {
		t.Fatalf("expected PromptTooLarge error")
	}
	if !result.HasKind(err, result.KindPromptTooLarge) {
		t.Fatalf("expected KindPromptTooLarge, got %v", result.KindOf(err))
	}
	if !strings.Contains(err.Error(), "gemini-pro") || !strings.Contains(err.Error(), "32760") {
		t.Fatalf("expected error message to name model and limit, got %q", err.Error())
	}
}

func TestCheckPromptSize_WarningBelowLimit(t *testing.T) {
	prompt := strings.Repeat("x", 27000*4)
	check, err := CheckPromptSize(prompt, "gemini-pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !check.Warning {
		t.Fatalf("expected warning at >0.8*limit")
	}
}

func TestCheckPromptSize_NoWarningWellUnderLimit(t *testing.T) {
	check, err := CheckPromptSize("short prompt", "gemini-pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.Warning {
		t.Fatalf("did not expect warning for a short prompt")
	}
}
