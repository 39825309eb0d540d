package main

import (
	"os"

	"github.com/dmitrijs2005/gophcredits/internal/ctl"
)

func main() {
	if err := ctl.Execute(); err != nil {
		os.Exit(1)
	}
}
