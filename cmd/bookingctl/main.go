package main

import (
	"fmt"
	"os"

	"github.com/cuongbtq/interpreter-booking/cmd/bookingctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
