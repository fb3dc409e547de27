package main

import (
	"log"

	"github.com/helperlink/dispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("helperdispatch: %v", err)
	}
}
