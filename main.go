package main

import (
	"os"

	"github.com/heimrichhannot/contao-ldap-bundle/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
