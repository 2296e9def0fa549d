package main

import (
	"os"

	"loanbroker/cmd/emi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
