package main

import (
	"os"

	"github.com/albertocavalcante/virtdoc/internal/cmd/virtdoc"
)

func main() {
	os.Exit(virtdoc.Run(os.Args[1:]))
}
