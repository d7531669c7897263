package main

import (
	"os"

	"github.com/GoDirAuth/GoDirAuth/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
