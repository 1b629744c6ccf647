package internal

import (
	"net/http"
	"streamwatch/internal/controllers"
	"streamwatch/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController, pollController *controllers.PollController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/dashboard", http.HandlerFunc(apiController.Dashboard))

	routers.Get("/groups", http.HandlerFunc(apiController.ListGroups))
	routers.Post("/groups", http.HandlerFunc(apiController.CreateGroup))
	routers.Put("/groups", http.HandlerFunc(apiController.RenameGroup))
	routers.Delete("/groups", http.HandlerFunc(apiController.DeleteGroup))
	routers.Get("/group", http.HandlerFunc(apiController.GroupDetails))

	routers.Get("/channels", http.HandlerFunc(apiController.ListChannels))
	routers.Post("/channels", http.HandlerFunc(apiController.CreateChannel))
	routers.Delete("/channels", http.HandlerFunc(apiController.DeleteChannel))

	routers.Get("/history", http.HandlerFunc(apiController.History))
	routers.Get("/export", http.HandlerFunc(apiController.Export))
	routers.Post("/samples", http.HandlerFunc(apiController.IngestSample))
	routers.Post("/poll", http.HandlerFunc(pollController.Poll))
	return routers
}
