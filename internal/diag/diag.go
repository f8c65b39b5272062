// Package diag wires structured CLI/VM diagnostic logging, kept separate
// from the compile/run error-string contract the lexer/parser/compiler/VM
// report through plain Go errors.
package diag

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Setup configures the process-wide commonlog backend. verbosity follows
// commonlog's convention: 0 is quiet, higher values are more verbose.
func Setup(verbosity int) {
	commonlog.Configure(verbosity, nil)
}

// Logger returns the named logger, e.g. diag.Logger("compiler").
func Logger(name string) commonlog.Logger {
	return commonlog.GetLogger("bilex." + name)
}
