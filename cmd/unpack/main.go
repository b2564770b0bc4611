package main

import (
	"github.com/mcdonaldj/unpack/internal/cli"
	"github.com/mcdonaldj/unpack/internal/tui"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	c := cli.New(version)
	// The ui command needs the terminal program; the CLI only knows its signature.
	c.RunUI = tui.Run
	c.Run()
}
