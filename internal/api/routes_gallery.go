package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/handlers"
)

func registerGalleryRoutes(api *gin.RouterGroup, deps Dependencies) {
	promptHandler := handlers.NewPromptHandler(deps.Prompts)
	imageHandler := handlers.NewImageHandler(deps.Images)

	api.GET("/prompts", promptHandler.List)
	api.GET("/image", imageHandler.Generate)
}
