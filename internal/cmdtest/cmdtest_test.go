package cmdtest

import (
	"testing"
)

func TestMain(m *testing.M) {
	Main(m)
}

func TestVirtdoc(t *testing.T) {
	Run(t, "testdata/virtdoc")
}
