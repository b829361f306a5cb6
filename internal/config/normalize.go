package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTextService()
	c.normalizeImageService()
	c.normalizePipeline()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		c.Paths.ImagesDir = c.Paths.DataDir + "/images"
	}
	if c.Paths.ImagesDir, err = expandPath(c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("paths.images_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = c.Paths.DataDir + "/logs"
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = Default().Paths.APIBind
	}
	return nil
}

func (c *Config) normalizeTextService() {
	if c.TextService.APIKey == "" {
		if value, ok := os.LookupEnv("DECKHAND_TEXT_API_KEY"); ok {
			c.TextService.APIKey = value
		}
	}
	c.TextService.APIKey = strings.TrimSpace(c.TextService.APIKey)
	c.TextService.BaseURL = strings.TrimSpace(c.TextService.BaseURL)
	if c.TextService.BaseURL == "" {
		c.TextService.BaseURL = Default().TextService.BaseURL
	}
	c.TextService.Model = strings.TrimSpace(c.TextService.Model)
	if c.TextService.Model == "" {
		c.TextService.Model = Default().TextService.Model
	}
	if c.TextService.TimeoutSeconds <= 0 {
		c.TextService.TimeoutSeconds = Default().TextService.TimeoutSeconds
	}
	if c.TextService.Attempts <= 0 {
		c.TextService.Attempts = Default().TextService.Attempts
	}
}

func (c *Config) normalizeImageService() {
	if c.ImageService.APIKey == "" {
		if value, ok := os.LookupEnv("DECKHAND_IMAGE_API_KEY"); ok {
			c.ImageService.APIKey = value
		}
	}
	c.ImageService.APIKey = strings.TrimSpace(c.ImageService.APIKey)
	c.ImageService.BaseURL = strings.TrimSpace(c.ImageService.BaseURL)
	if c.ImageService.BaseURL == "" {
		c.ImageService.BaseURL = Default().ImageService.BaseURL
	}
	c.ImageService.Model = strings.TrimSpace(c.ImageService.Model)
	if c.ImageService.Model == "" {
		c.ImageService.Model = Default().ImageService.Model
	}
	c.ImageService.AspectRatio = strings.TrimSpace(c.ImageService.AspectRatio)
	if c.ImageService.AspectRatio == "" {
		c.ImageService.AspectRatio = Default().ImageService.AspectRatio
	}
	if c.ImageService.TimeoutSeconds <= 0 {
		c.ImageService.TimeoutSeconds = Default().ImageService.TimeoutSeconds
	}
	if c.ImageService.Concurrency <= 0 {
		c.ImageService.Concurrency = Default().ImageService.Concurrency
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.RetryBaseDelayMS <= 0 {
		c.Pipeline.RetryBaseDelayMS = Default().Pipeline.RetryBaseDelayMS
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = Default().Notifications.RequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = Default().Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = Default().Logging.Level
	}
}
