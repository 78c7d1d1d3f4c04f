package main

import (
	"os"

	"github.com/small-frappuccino/boardcore/pkg/app"
	"github.com/small-frappuccino/boardcore/pkg/log"
)

// main is the entry point of the board bot.
func main() {
	if err := app.Run("boardcore"); err != nil {
		log.ErrorLoggerRaw().Error("Fatal", "err", err)
		os.Exit(1)
	}
}
