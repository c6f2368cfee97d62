package bootstrap

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from the file named by ENV_FILE (default .env).
// Variables already present in the environment win.
func LoadEnv() {
	file := os.Getenv("ENV_FILE")
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		log.Printf("no %s file loaded, using process environment", file)
	}
}
