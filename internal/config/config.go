package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Search   SearchConfig
	Rerank   RerankConfig
	GitHub   GitHubConfig
	Pipeline PipelineConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider      string // "ollama" or "openai"
	LLMModel         string
	LLMBaseURL       string
	LLMAPIKey        string
	LLMMaxConcurrent int
}

type SearchConfig struct {
	MeiliURL    string
	MeiliAPIKey string
}

type RerankConfig struct {
	CohereAPIKey  string
	CohereBaseURL string
	Model         string
	MaxConcurrent int
}

type GitHubConfig struct {
	Token   string
	BaseURL string
}

type PipelineConfig struct {
	SemanticRatio      float64
	MinKPerIndex       int
	GlobalBudget       int
	RerankTopN         int
	TotalK             int
	MinGuarantee       int
	RerankThreshold    float64
	TargetSourceCount  int
	RelatedTicketsTopN int
	MaxRetries         int
	HistoryTokenBudget int
	RouterUseHistory   bool
	SessionTTLHours    int
}

type APIKeys struct {
	JWTSecret    string
	TurnTopic    string // chat turn completion topic on the in-process bus
	AuditSubject string // NATS audit subject, empty disables forwarding
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:         getEnv("LLM_MODEL", "qwen2.5"),
			LLMBaseURL:       getEnv("LLM_BASE_URL", "http://localhost:11434"),
			LLMAPIKey:        getEnv("LLM_API_KEY", ""),
			LLMMaxConcurrent: getEnvAsInt("LLM_MAX_CONCURRENT", 5),
		},
		Search: SearchConfig{
			MeiliURL:    getEnv("MEILI_URL", "http://localhost:7700"),
			MeiliAPIKey: getEnv("MEILI_API_KEY", ""),
		},
		Rerank: RerankConfig{
			CohereAPIKey:  getEnv("COHERE_API_KEY", ""),
			CohereBaseURL: getEnv("COHERE_BASE_URL", "https://api.cohere.com"),
			Model:         getEnv("COHERE_RERANK_MODEL", "rerank-v3.5"),
			MaxConcurrent: getEnvAsInt("RERANK_MAX_CONCURRENT", 3),
		},
		GitHub: GitHubConfig{
			Token:   getEnv("GITHUB_TOKEN", ""),
			BaseURL: getEnv("GITHUB_API_BASE_URL", "https://api.github.com"),
		},
		Pipeline: PipelineConfig{
			SemanticRatio:      getEnvAsFloat("SEARCH_SEMANTIC_RATIO", 0.5),
			MinKPerIndex:       getEnvAsInt("SEARCH_MIN_K_PER_INDEX", 3),
			GlobalBudget:       getEnvAsInt("SEARCH_GLOBAL_BUDGET", 12),
			RerankTopN:         getEnvAsInt("RERANK_TOP_N", 10),
			TotalK:             getEnvAsInt("DIVERSE_TOTAL_K", 8),
			MinGuarantee:       getEnvAsInt("DIVERSE_MIN_GUARANTEE", 2),
			RerankThreshold:    getEnvAsFloat("SOURCE_SCORE_THRESHOLD", 0.35),
			TargetSourceCount:  getEnvAsInt("SOURCE_TARGET_COUNT", 5),
			RelatedTicketsTopN: getEnvAsInt("RELATED_TICKETS_TOP_N", 3),
			MaxRetries:         getEnvAsInt("GRADE_MAX_RETRIES", 3),
			HistoryTokenBudget: getEnvAsInt("HISTORY_TOKEN_BUDGET", 2000),
			RouterUseHistory:   getEnvAsBool("ROUTER_USE_HISTORY", false),
			SessionTTLHours:    getEnvAsInt("SESSION_TTL_HOURS", 24),
		},
		Keys: APIKeys{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TurnTopic:    getEnv("CHAT_TURN_TOPIC_NAME", "CHAT_TURN_COMPLETED"),
			AuditSubject: getEnv("NATS_AUDIT_SUBJECT", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
