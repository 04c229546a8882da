package main

import (
	"fmt"
	"os"

	"github.com/fahmaliyi/wifivault/cli"
)

func main() {
	if err := cli.NewApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
