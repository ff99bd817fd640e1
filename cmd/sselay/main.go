package main

import (
	"log"

	"github.com/ravel-org/sselay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}
