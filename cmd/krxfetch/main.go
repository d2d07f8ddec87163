package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

func main() {
	envFile := os.Getenv("KRX_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	if err := loadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
		os.Exit(exitFault)
	}

	cmd := newApp(os.Stdout, os.Stderr, time.Now)

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		code := exitCode(err)
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}

		os.Exit(code)
	}
}
