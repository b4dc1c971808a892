package shared

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state) != 32 || strings.Contains(state, "-") {
		t.Errorf("unexpected state token %q", state)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "playlist", "pl1")
	SetLogLevel(logger, log.WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "playlist=pl1") {
		t.Errorf("expected warn line with playlist field, got %q", out)
	}
}

func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: no client id", ErrMissingCredentials), true},
		{fmt.Errorf("%w: token file", ErrSetupRequired), true},
		{ErrInvalidConfig, true},
		{fmt.Errorf("%w: status 500", ErrAPIRequest), false},
		{errors.New("boom"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsConfigurationError(tt.err); got != tt.want {
			t.Errorf("IsConfigurationError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
