// Command httpd runs the content-pipeline HTTP service.
package main

import (
	"log"

	"github.com/postloop/content-pipeline/internal/bootstrap"
	"github.com/postloop/content-pipeline/internal/config"
)

func main() {
	app, err := bootstrap.NewApp(config.GetConfigPath("config.yml"))
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
