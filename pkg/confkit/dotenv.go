package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files once per process. ENV_FILE names a single
// file; otherwise every .env from this package up to the module root is read.
// NO_DOTENV=1 disables loading and DOTENV_OVERLOAD=1 lets the files override
// variables already set.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}
	if _, ok := walkUp(func(dir string) { _ = load(filepath.Join(dir, ".env")) }); ok {
		return
	}
	_ = load(".env")
}
