package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/gonotes/config"
	"github.com/oklog/ulid/v2"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	serverConfig := serverHandler.ServerConfig
	if err := serverConfig.Validate(); err != nil {
		Logger.Error("Invalid configuration", "error", err)
		return err
	}
	if err := documentDirectoryChecks(serverConfig); err != nil {
		return err
	}
	serverHandler.attachmentInventory()
	if serverHandler.Backend == nil {
		Logger.Warn("No PDF renderer available, server-side page rendering is disabled", "renderer", serverConfig.Renderer)
	}
	return nil
}

// documentDirectoryChecks ensures the attachment directory exists
func documentDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.DocumentPath == "" {
		return fmt.Errorf("document path not configured")
	}

	docInfo, err := os.Stat(serverConfig.DocumentPath)
	switch {
	case os.IsNotExist(err):
		Logger.Info("Creating document directory", "path", serverConfig.DocumentPath)
		if err := os.MkdirAll(serverConfig.DocumentPath, 0755); err != nil {
			Logger.Error("Failed to create document directory", "path", serverConfig.DocumentPath, "error", err)
			return err
		}
		return nil
	case err != nil:
		Logger.Error("Error checking document directory", "path", serverConfig.DocumentPath, "error", err)
		return err
	case !docInfo.IsDir():
		Logger.Error("Document path exists but is not a directory", "path", serverConfig.DocumentPath)
		return fmt.Errorf("document path is not a directory: %s", serverConfig.DocumentPath)
	}

	Logger.Info("Document directory exists", "path", serverConfig.DocumentPath)
	return nil
}

// attachmentInventory logs how many attachments are reachable by note id,
// registers them, and warns about files the routes will never serve
func (serverHandler *ServerHandler) attachmentInventory() (served, ignored int) {
	documentPath := serverHandler.ServerConfig.DocumentPath
	entries, err := os.ReadDir(documentPath)
	if err != nil {
		Logger.Warn("Unable to list document directory", "path", documentPath, "error", err)
		return 0, 0
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		id, err := ulid.ParseStrict(strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil || name != id.String()+".pdf" {
			Logger.Warn("Attachment is not named by a note ID and will not be served", "file", name)
			ignored++
			continue
		}
		served++
		if serverHandler.DB == nil {
			continue
		}
		path := filepath.Join(documentPath, name)
		facts, err := probeDocument(path)
		if err != nil {
			Logger.Warn("Attachment is not a readable PDF", "file", name, "error", err)
			continue
		}
		serverHandler.registerNote(id.String(), path, facts)
	}
	Logger.Info("Attachment inventory", "served", served, "ignored", ignored)
	return served, ignored
}
