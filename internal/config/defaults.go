package config

const (
	defaultAssetsDir       = "assets"
	defaultOutputDir       = "data"
	defaultKeyframeCount   = 3
	defaultMinDuration     = 1.0
	defaultEncoderProvider = "ollama"
	defaultEncoderBaseURL  = "http://localhost:11434"
	defaultEncoderModel    = "vit-b-32"
	defaultDimensions      = 512
	defaultWorkers         = 4
	defaultStoreBackend    = "files"
	defaultChatModel       = "llama3.2-vision:11b"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetsDir: defaultAssetsDir,
			OutputDir: defaultOutputDir,
		},
		Keyframes: Keyframes{
			Count:       defaultKeyframeCount,
			MinDuration: defaultMinDuration,
		},
		Encoder: Encoder{
			Provider:   defaultEncoderProvider,
			BaseURL:    defaultEncoderBaseURL,
			Model:      defaultEncoderModel,
			Dimensions: defaultDimensions,
		},
		Ingest: Ingest{
			Workers: defaultWorkers,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Annotate: Annotate{
			Provider:  defaultEncoderProvider,
			BaseURL:   defaultEncoderBaseURL,
			ChatModel: defaultChatModel,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
