package main

import (
	"log"

	"vmforge/cmd"
	"vmforge/internal/logging"
)

func main() {
	if err := logging.InitLogger(); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	cmd.Execute()
}
