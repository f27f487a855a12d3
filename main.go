package main

import (
	"os"

	"github.com/Zhima-Mochi/minishop-sales/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
