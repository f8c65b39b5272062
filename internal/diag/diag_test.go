package diag

import "testing"

func TestLoggerReturnsNonNilLogger(t *testing.T) {
	Setup(0)
	log := Logger("test")
	if log == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestLoggerNamesAreNamespaced(t *testing.T) {
	Setup(0)
	a := Logger("compiler")
	b := Logger("vm")
	if a == nil || b == nil {
		t.Fatal("expected non-nil loggers for distinct names")
	}
}
