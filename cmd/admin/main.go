package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/apptracker/internal/admin"
	"github.com/dmitrijs2005/apptracker/internal/server"
	"github.com/dmitrijs2005/apptracker/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	svc := app.Services()
	a := admin.New(app, svc.Users, svc.Auth, os.Stdout)

	if err := a.Run(ctx, commandArgs(os.Args[1:])); err != nil {
		log.Printf("%v", err)
		app.Close()
		os.Exit(1)
	}

}

// commandArgs drops the global config flags in front of the command name.
func commandArgs(args []string) []string {
	for i, arg := range args {
		switch arg {
		case "migrate", "create-user", "revoke-sessions":
			return args[i:]
		}
	}
	return nil
}
