package main

import (
	"snatchbot/cmd"

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // We need this to make TLS work in scratch containers
)

func main() {
	// Load .env if present so flag env vars work in local development
	godotenv.Load()
	cmd.Execute()
}
