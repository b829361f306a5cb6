package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTextService(); err != nil {
		return err
	}
	if err := c.validateImageService(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		return errors.New("paths.images_dir must be set")
	}
	return nil
}

func (c *Config) validateTextService() error {
	if c.TextService.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/deckhand/config.toml"
		}
		return fmt.Errorf("text_service.api_key is required. Set DECKHAND_TEXT_API_KEY env var or edit %s (create with 'deckhand config init')", defaultPath)
	}
	if c.TextService.Attempts < 1 {
		return errors.New("text_service.attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateImageService() error {
	if c.ImageService.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/deckhand/config.toml"
		}
		return fmt.Errorf("image_service.api_key is required. Set DECKHAND_IMAGE_API_KEY env var or edit %s (create with 'deckhand config init')", defaultPath)
	}
	if c.ImageService.Concurrency < 1 {
		return errors.New("image_service.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "console", "json":
	default:
		return fmt.Errorf("logging.format must be text, console, or json (got %q)", c.Logging.Format)
	}
	return nil
}
