package main

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error. Variables already set are left alone.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}
