package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
