package main

import (
	"os"

	"mcpgateway/cmd"
	"mcpgateway/pkg/logging"

	"github.com/joho/godotenv"
)

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	logging.InitForCLI(logging.LevelInfo, os.Stdout)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Warn("Bootstrap", "failed to load .env file: %v", err)
	}

	cmd.SetVersion(version)
	cmd.Execute()
}
