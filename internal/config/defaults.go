package config

// Default returns the built-in configuration values applied before a config
// file is decoded on top.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   "~/.local/share/deckhand",
			ImagesDir: "~/.local/share/deckhand/images",
			LogDir:    "~/.local/share/deckhand/logs",
			APIBind:   "127.0.0.1:7733",
		},
		TextService: TextService{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "anthropic/claude-sonnet-4.5",
			TimeoutSeconds: 60,
			Attempts:       3,
		},
		ImageService: ImageService{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			Model:          "gemini-2.5-flash-image",
			AspectRatio:    "16:9",
			TimeoutSeconds: 120,
			Concurrency:    5,
		},
		Pipeline: Pipeline{
			RetryBaseDelayMS: 1000,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Jobs:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: "text",
			Level:  "info",
		},
	}
}
