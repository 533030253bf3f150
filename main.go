package main

import (
	"os"

	"github.com/edly-io/nodebb-sync/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
