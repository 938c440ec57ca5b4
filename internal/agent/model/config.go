package model

// ================ Config ================
type LLMConfig struct {
	Model       string  `envconfig:"LLM_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.3"`
}

type PromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"Geraldine"`
	ProductName   string `envconfig:"PROMPT_PRODUCT_NAME" default:"RepliKers"`
}

type ConversationConfig struct {
	TTL       string `envconfig:"CONVERSATION_TTL" default:"720h"`
	ExportDir string `envconfig:"EXPORT_DIR" default:"exports"`
	Tools     struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type StoreConfig struct {
	// Driver is one of "mongo", "redis" or "memory".
	Driver string `envconfig:"STORE_DRIVER" default:"mongo"`
}

type RAGConfig struct {
	Enabled        bool    `envconfig:"RAG_ENABLED" default:"true"`
	EmbeddingModel string  `envconfig:"RAG_EMBEDDING_MODEL" default:"text-embedding-004"`
	TopK           int     `envconfig:"RAG_TOP_K" default:"5"`
	MinScore       float32 `envconfig:"RAG_MIN_SCORE" default:"0.5"`
	MinTextLength  int     `envconfig:"RAG_MIN_TEXT_LENGTH" default:"50"`
}

type TimeAPIConfig struct {
	BaseURL string `envconfig:"TIME_API_BASE_URL" default:"https://tiempo-api-922839482240.us-central1.run.app"`
	Timeout int    `envconfig:"TIME_API_TIMEOUT" default:"10"`
}

type MediaConfig struct {
	Model        string `envconfig:"MEDIA_MODEL" default:"gemini-2.5-flash"`
	MaxFileBytes int64  `envconfig:"MEDIA_MAX_FILE_BYTES" default:"10485760"`
}

type HTTPConfig struct {
	Addr         string   `envconfig:"HTTP_ADDR" default:":8080"`
	AllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}
