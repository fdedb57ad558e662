package main

import (
	"context"
	"log"
	"os"

	"github.com/canvai/canvai/internal/app"
	"github.com/canvai/canvai/internal/config"
	"github.com/canvai/canvai/internal/host"
	"github.com/canvai/canvai/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSON(os.Stdout)

	loop := host.NewLoop()

	a, err := app.NewApp(ctx, cfg, loop, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	go loop.Run(ctx)

	a.Run(ctx)

}
