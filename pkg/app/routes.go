package app

// initDefaultRoutes initializes the applications default routes.
//  These are the routes which always are the same in every application.
//  Things like user api, version, ...
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.config.Webserver.Webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.config.Webserver.Webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.config.Webserver.Webservices["port"] {
		api.Get("/port", app.HandlePort())
	}
	if app.config.Webserver.Webservices["pins"] {
		api.Get("/pins", app.HandlePins())
		api.Get("/pins/:name", app.HandlePin())
		api.Put("/pins/:name", app.HandleSetPin())
	}
	if app.config.Webserver.Webservices["registers"] {
		api.Get("/registers", app.HandleRegisters())
		api.Put("/registers/:register", app.HandleWriteRegister())
	}
}
