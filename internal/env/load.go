package env

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Load reads a .env file if one exists next to the binary. The cron
// deployment keeps its credentials there; absence is not an error.
func Load() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Error().Err(err).Msg("error loading .env file")
	}
}
