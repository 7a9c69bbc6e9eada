package main

import (
	"context"
	"log"
	"os"

	"github.com/voicetuber/kiln/pkg/api"
	"github.com/voicetuber/kiln/pkg/recipefile"
)

func main() {
	dir := os.Getenv("KILN_RECIPES")
	if dir == "" {
		dir = "recipes"
	}

	ctx := context.Background()
	catalog, err := recipefile.LoadCatalog(ctx, dir)
	if err != nil {
		log.Fatal(err)
	}
	if err := api.Serve(ctx, catalog); err != nil {
		log.Fatal(err)
	}
}
