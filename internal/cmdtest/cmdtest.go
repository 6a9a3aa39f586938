// Package cmdtest provides a testscript-based test harness for the virtdoc
// CLI.
//
// It uses txtar format test files to specify input files and expected
// outputs, making it easy to write end-to-end CLI tests.
//
// Example test file (testdata/virtdoc/track.txtar):
//
//	exec virtdoc -dir . -lang go
//	stdout 'created'
//
//	-- doc.md --
//	# Sample
package cmdtest

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/albertocavalcante/virtdoc/internal/cmd/virtdoc"
)

// Run executes the testscript tests in the given directory.
func Run(t *testing.T, dir string) {
	testscript.Run(t, testscript.Params{
		Dir: dir,
	})
}

// Main is the TestMain function that should be called from test files.
// It registers the CLI as a testscript command.
func Main(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"virtdoc": wrapRun(virtdoc.Run),
	}))
}

// wrapRun wraps a Run(args []string) int function to func() int for
// testscript. The args are taken from os.Args[1:].
func wrapRun(run func(args []string) int) func() int {
	return func() int {
		return run(os.Args[1:])
	}
}
