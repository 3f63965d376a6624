package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP    string
	ListenAddrPort  string
	DocumentPath    string
	BaseURL         string
	SigningKey      string `json:"-"`
	Debug           bool
	Renderer        string
	UseReverseProxy bool
	// DatabaseType is sqlite, postgres, cockroachdb, ephemeral or none. With none,
	// attachments are found by file name alone.
	DatabaseType     string
	DatabaseDbname   string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseSslmode  string
	FrontEndConfig
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	ServerAPIURL    string
	RefreshInterval time.Duration
	// URLLifetime is how long a signed note URL stays valid. The server signs
	// with it and the viewer sizes its refresh check against it.
	URLLifetime  time.Duration
	TrustedHosts []string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvDuration gets a duration environment variable with a default value.
// Plain integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvList gets a comma separated environment variable with a default value
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func loadFrontEnd(defaultAPIURL string) FrontEndConfig {
	return FrontEndConfig{
		ServerAPIURL:    getEnv("SERVER_API_URL", defaultAPIURL),
		RefreshInterval: getEnvDuration("VIEWER_REFRESH_INTERVAL", 4*time.Minute),
		URLLifetime:     getEnvDuration("URL_LIFETIME", 5*time.Minute),
		TrustedHosts:    getEnvList("TRUSTED_HOSTS", []string{"localhost", "127.0.0.1"}),
	}
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")
	serverConfigLive.Debug = getEnvBool("DEBUG", false)

	fmt.Println("\n========================================")
	fmt.Println("   gonotes - Note Attachment Viewer")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "gonotes.log"))
	fmt.Println("Initializing...")

	// Document storage configuration
	documentPathRelative := filepath.ToSlash(getEnv("DOCUMENT_PATH", "documents"))
	documentPathAbs, err := filepath.Abs(documentPathRelative)
	if err != nil {
		logger.Error("Error creating document path", "path", documentPathRelative, "error", err)
	}
	serverConfigLive.DocumentPath = documentPathAbs

	// Signed URL configuration
	serverConfigLive.SigningKey = getEnv("URL_SIGNING_KEY", "")
	if serverConfigLive.Debug {
		logger.Warn("Debug mode: note files are served through unsigned URLs")
	}

	serverConfigLive.Renderer = getEnv("PDF_RENDERER", "pdfium")

	// Note registry configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "none")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", filepath.Join("databases", "gonotes.sqlite"))
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "gonotes")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")

	// Reverse proxy configuration
	serverConfigLive.UseReverseProxy = getEnvBool("PROXY_ENABLED", false)
	serverConfigLive.BaseURL = getEnv("BASE_URL", "")

	if serverConfigLive.BaseURL != "" {
		logger.Info("Issuing absolute file URLs", "baseURL", serverConfigLive.BaseURL)
	} else {
		logger.Info("Issuing relative file URLs (viewer resolves them against the page it was served from)")
	}

	// Frontend configuration
	serverConfigLive.FrontEndConfig = loadFrontEnd("")

	return serverConfigLive, logger
}

// SetupFrontend loads configuration for frontend-only server
func SetupFrontend() (FrontEndConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")
	_ = godotenv.Load("frontend.env")

	logger := setupLogging()
	Logger = logger

	frontendConfig := loadFrontEnd("http://localhost:8000")

	logger.Info("Frontend configuration loaded",
		"apiURL", frontendConfig.ServerAPIURL,
		"refreshInterval", frontendConfig.RefreshInterval,
		"trustedHosts", frontendConfig.TrustedHosts)

	return frontendConfig, logger
}

// Validate checks settings that would otherwise fail at the first request
func (c ServerConfig) Validate() error {
	var errs []error
	if c.SigningKey == "" && !c.Debug {
		errs = append(errs, errors.New("URL_SIGNING_KEY must be set unless DEBUG is enabled"))
	}
	if c.URLLifetime <= 0 {
		errs = append(errs, fmt.Errorf("URL_LIFETIME must be positive, got %s", c.URLLifetime))
	}
	if c.RefreshInterval <= 0 || c.RefreshInterval >= c.URLLifetime {
		errs = append(errs, fmt.Errorf("VIEWER_REFRESH_INTERVAL (%s) must be positive and shorter than URL_LIFETIME (%s)",
			c.RefreshInterval, c.URLLifetime))
	}
	switch strings.ToLower(c.Renderer) {
	case "pdfium", "fitz", "mupdf":
	default:
		errs = append(errs, fmt.Errorf("PDF_RENDERER must be pdfium or fitz, got %q", c.Renderer))
	}
	switch c.DatabaseType {
	case "", "none", "sqlite", "postgres", "cockroachdb", "ephemeral":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_TYPE must be sqlite, postgres, cockroachdb, ephemeral or none, got %q", c.DatabaseType))
	}
	return errors.Join(errs...)
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "gonotes.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// GetPreferredOutboundIP gets preferred outbound IP of this machine
func GetPreferredOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP, nil
}
