package main

import (
	"context"
	"log"

	"github.com/dkorchagin/shareup/internal/app"
	"github.com/dkorchagin/shareup/internal/config"
)

func main() {
	cfg := config.LoadConfig()

	a, err := app.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := a.Run(context.Background()); err != nil {
		log.Printf("%v", err)
	}
}
