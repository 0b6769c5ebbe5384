// Command gistfav serves public GitHub gists joined with locally stored
// favorite marks.
//
//	@title			Gist Favorites API
//	@version		1.0
//	@description	Public GitHub gists joined with locally stored favorite marks.
//	@BasePath		/api/v1
package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-gist-favorites/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	if err := cli.Execute(os.Args[1:], version); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
