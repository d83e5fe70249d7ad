package main

import (
	"context"
	"log"
	_ "time/tzdata"

	"github.com/dalemusser/waffle/app"
	"github.com/moohaammed/maratech-2026-projet/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
