package main

import (
	"context"

	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/server"
	"github.com/charlesng35/promptgallery/pkg/lambda"
)

var adapter *lambda.Adapter

func init() {
	cfg, err := app.LoadConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if err := app.ConfigureLogging(cfg.Server); err != nil {
		panic("Failed to configure logging: " + err.Error())
	}

	stack, err := server.Bootstrap(context.Background(), cfg)
	if err != nil {
		panic("Failed to initialize runtime: " + err.Error())
	}

	adapter = lambda.NewAdapter(stack.Router, lambda.WithRoutes("GET /api/prompts"))
}

func main() {
	awslambda.Start(adapter.HandleProxy)
}
