package main

import (
	"os"

	"github.com/larkvm/lark/pkg/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
