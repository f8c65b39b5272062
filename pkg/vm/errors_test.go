package vm

import (
	"strings"
	"testing"
)

func TestRuntimeErrorFormatting(t *testing.T) {
	err := &RuntimeError{Func: "fib", IP: 12, Msg: "division by zero"}
	got := err.Error()
	if !strings.Contains(got, "fib") || !strings.Contains(got, "12") || !strings.Contains(got, "division by zero") {
		t.Fatalf("unexpected error string: %q", got)
	}
}
