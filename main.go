package main

import (
	"os"

	"github.com/dpshade/pocket-problem/internal/cli"
	"github.com/dpshade/pocket-problem/internal/service"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

func main() {
	cli.Version = version
	os.Exit(cli.NewCLI(service.NewService).Execute(os.Args[1:]))
}
