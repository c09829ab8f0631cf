package main

import (
	"fmt"
	"os"

	_ "time/tzdata"

	_ "go.uber.org/automaxprocs"

	"github.com/smazurov/iss-notify/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
