package main

import (
	"os"

	"github.com/dgallion1/patentalloy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
