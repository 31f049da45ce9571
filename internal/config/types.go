package config

type Config struct {
	Gateway GatewayConfig `yaml:"gateway" json:"gateway"`
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	OpenAI  OpenAIConfig  `yaml:"openai" json:"openai"`
	Vision  VisionConfig  `yaml:"vision" json:"vision"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Blob    BlobConfig    `yaml:"blob" json:"blob"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Chat    ChatConfig    `yaml:"chat" json:"chat"`
}

type GatewayConfig struct {
	Port int `yaml:"port" json:"port"`
	// PublicURL is the websocket URL advertised to clients during
	// connection negotiation, e.g. wss://chat.example.com/ws.
	PublicURL string `yaml:"publicURL" json:"publicURL"`
	// ConnectionTTLMinutes is the advertised lifetime of a negotiated
	// connection.
	ConnectionTTLMinutes int `yaml:"connectionTTLMinutes" json:"connectionTTLMinutes"`
}

type AuthConfig struct {
	// PublicKey is the identity provider's PEM-encoded RSA public key.
	PublicKey string `yaml:"publicKey" json:"publicKey"`
	// AuthorizedParties lists the azp claims accepted on tokens.
	AuthorizedParties []string `yaml:"authorizedParties" json:"authorizedParties"`
}

type OpenAIConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	APIKey     string `yaml:"apiKey" json:"apiKey"`
	Deployment string `yaml:"deployment" json:"deployment"`
}

type VisionConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	APIKey     string `yaml:"apiKey" json:"apiKey"`
	Deployment string `yaml:"deployment" json:"deployment"`
}

type SearchConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	APIKey   string `yaml:"apiKey" json:"apiKey"`
}

type BlobConfig struct {
	Region string `yaml:"region" json:"region"`
	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint       string `yaml:"endpoint" json:"endpoint"`
	ImageBucket    string `yaml:"imageBucket" json:"imageBucket"`
	DocumentBucket string `yaml:"documentBucket" json:"documentBucket"`
}

type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

type ChatConfig struct {
	// Windows is the descending context-window retry sequence for the
	// adaptive retrieval query.
	Windows     []int `yaml:"windows" json:"windows"`
	HistorySize int   `yaml:"historySize" json:"historySize"`
	MaxTokens   int   `yaml:"maxTokens" json:"maxTokens"`
	// MaxImageWidth bounds the width of recompressed image uploads.
	MaxImageWidth int `yaml:"maxImageWidth" json:"maxImageWidth"`
	// SignedURLTTLMinutes limits the validity of translated citation URLs.
	SignedURLTTLMinutes int `yaml:"signedURLTTLMinutes" json:"signedURLTTLMinutes"`
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Port:                 19700,
			ConnectionTTLMinutes: 60,
		},
		OpenAI: OpenAIConfig{
			Deployment: "validation-testing-model",
		},
		Blob: BlobConfig{
			Region:         "us-east-1",
			ImageBucket:    "chat-images",
			DocumentBucket: "documents",
		},
		Chat: ChatConfig{
			Windows:             []int{10, 5, 1},
			HistorySize:         10,
			MaxTokens:           1000,
			MaxImageWidth:       1024,
			SignedURLTTLMinutes: 60,
		},
	}
}
