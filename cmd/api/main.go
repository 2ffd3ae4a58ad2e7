package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/metinatakli/seat-reservation-engine/internal/app"
)

func main() {
	// a .env file is optional; flags and the real environment still apply
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env file: %s", err)
	}

	err = app.Run()
	if err != nil {
		log.Printf("server stopped: %s", err)
		os.Exit(1)
	}
}
