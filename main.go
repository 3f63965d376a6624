package main

import (
	"embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/gonotes/config"
	"github.com/drummonds/gonotes/database"
	engine "github.com/drummonds/gonotes/engine"
	"github.com/drummonds/gonotes/pdfrender"
	"github.com/drummonds/gonotes/webapp"
)

//go:embed webapp/webapp.css
var webappFS embed.FS

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	database.Logger = Logger
	engine.Logger = Logger
	pdfrender.Logger = Logger
}

// notFoundHandler answers JSON for API and file routes and HTML elsewhere
func notFoundHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code != http.StatusNotFound {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		path := c.Request().URL.Path
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/files/") {
			c.JSON(http.StatusNotFound, map[string]string{
				"error": "Not Found",
				"path":  path,
			})
			return
		}
		c.HTML(http.StatusNotFound, `<!DOCTYPE html>
<html>
<head><title>404 - Not Found</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
	<h1>404 - Page Not Found</h1>
	<a href="/" style="color: #3498db; text-decoration: none; font-size: 18px;">← Open a note</a>
</body>
</html>`)
	}
}

// newServer wires the backend routes and the go-app UI onto a new echo
// instance. The returned function stops background jobs and frees the renderer.
func newServer(serverConfig config.ServerConfig) (*echo.Echo, func(), error) {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = notFoundHandler(e)

	backend, err := pdfrender.NewBackend(serverConfig.Renderer)
	if err != nil {
		Logger.Warn("PDF renderer unavailable", "renderer", serverConfig.Renderer, "error", err)
		backend = nil
	}

	closeAll := func(db database.Repository) {
		if db != nil {
			db.Close()
		}
		if backend != nil {
			backend.Close()
		}
	}

	db, err := engine.OpenRegistry(serverConfig)
	if err != nil {
		closeAll(nil)
		return nil, nil, fmt.Errorf("unable to open note registry: %w", err)
	}

	serverHandler := engine.NewServerHandler(e, serverConfig, backend)
	serverHandler.DB = db
	if err := serverHandler.StartupChecks(); err != nil {
		closeAll(db)
		return nil, nil, err
	}
	stopSchedules := serverHandler.InitializeSchedules()
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	serverHandler.RegisterRoutes()

	Logger.Info("Setting up go-app WASM UI")
	appHandler := webapp.Handler()

	// wasm_exec.js and app.wasm are build outputs placed in web/
	e.File("/wasm_exec.js", "web/wasm_exec.js")
	e.Static("/web", "web")

	// Register go-app specific resources
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	e.GET("/webapp/webapp.css", func(c echo.Context) error {
		data, err := webappFS.ReadFile("webapp/webapp.css")
		if err != nil {
			return c.String(http.StatusNotFound, "webapp.css not found")
		}
		return c.Blob(http.StatusOK, "text/css", data)
	})

	// Inject backend API URL and viewer settings into the page
	e.GET("/config.js", func(c echo.Context) error {
		c.Response().Header().Set("Content-Type", "application/javascript")
		return c.String(http.StatusOK, webapp.ConfigScript(serverConfig.FrontEndConfig))
	})

	// Serve go-app handler for all other routes (must be last)
	// The WASM app handles its own client-side routing and 404s via NotFoundPage component
	e.Any("/*", echo.WrapHandler(appHandler))

	return e, func() {
		stopSchedules()
		closeAll(db)
	}, nil
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	e, shutdown, err := newServer(serverConfig)
	if err != nil {
		Logger.Error("Startup checks failed", "error", err)
		fmt.Println("Startup failed:", err)
		os.Exit(1)
	}
	defer shutdown()

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
			continue
		}
		if startErr != nil && startErr != http.ErrServerClosed {
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		}
		break
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
