package main

import (
	"flag"
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
)

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

// @title gonotes Backend API
// @version 1.0
// @description Issues short-lived signed URLs for note attachments, serves the attachments and renders their pages

// @contact.name API Support
// @contact.url https://github.com/drummonds/gonotes

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /
// @schemes http https

// @tag.name Notes
// @tag.description Secure attachment URLs

// @tag.name Files
// @tag.description Attachment download and server-side page rendering

// @tag.name Admin
// @tag.description Health and application information

func main() {
	// Parse command-line flags
	port := flag.String("port", "8000", "Port to run backend server on")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🔧  gonotes Backend API Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• API-only mode (no frontend)")
	fmt.Println("• Signed attachment URLs under /notes/{id}/file/")
	fmt.Println("• CORS enabled for frontend access")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// JSON 404s, the viewer surfaces the error field
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error": "Not Found",
				"path":  c.Request().URL.Path,
			})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	backend, err := pdfrender.NewBackend(serverConfig.Renderer)
	if err != nil {
		Logger.Warn("PDF renderer unavailable, page rendering disabled", "renderer", serverConfig.Renderer, "error", err)
		backend = nil
	} else {
		defer backend.Close()
	}

	db, err := engine.OpenRegistry(serverConfig)
	if err != nil {
		Logger.Error("Unable to open note registry", "error", err)
		fmt.Println("Startup failed:", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	serverHandler := engine.NewServerHandler(e, serverConfig, backend)
	serverHandler.DB = db
	Logger.Info("Initializing backend services...")
	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Error("Startup checks failed", "error", err)
		fmt.Println("Startup failed:", err)
		os.Exit(1)
	}
	stopSchedules := serverHandler.InitializeSchedules() //initialize all the cron jobs
	defer stopSchedules()
	Logger.Info("Backend services initialized")

	// CORS configuration - allow frontend from different origin
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // In production, specify your frontend URL
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "Range"},
	}))

	// Request logging
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${path}, status=${status}, latency=${latency_human}\n",
	}))

	Logger.Info("Setting up API routes...")
	serverHandler.RegisterRoutes()

	// Override port if specified via flag
	if *port != "8000" {
		serverConfig.ListenAddrPort = *port
	}

	// Start server
	addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	Logger.Info("Starting Backend API Server", "address", addr)
	fmt.Printf("\n✅  Backend API Server running on %s\n", addr)
	fmt.Printf("🏥  Health check: http://%s/api/health\n\n", addr)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
