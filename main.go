// Legal Team RAG is a document-grounded multi-agent legal analysis service.
package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"legal-team-rag/internal/agents"
	"legal-team-rag/internal/api"
	"legal-team-rag/internal/config"
	"legal-team-rag/internal/embeddings"
	"legal-team-rag/internal/index"
	"legal-team-rag/internal/llm"
	"legal-team-rag/internal/orchestrator"
	"legal-team-rag/internal/retrieval"
	"legal-team-rag/internal/session"
	"legal-team-rag/internal/storage"
	"legal-team-rag/internal/tools"
)

func main() {
	log.Println("Starting Legal Team RAG...")

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize SQLite vector store
	vectorStore, err := storage.NewSQLiteVectorStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to initialize vector store:", err)
	}
	defer func() {
		if err := vectorStore.Close(); err != nil {
			log.Printf("Error closing vector store: %v", err)
		}
	}()

	embedder := buildEmbedder(cfg)
	llmClient := buildLLMClient(cfg)

	retriever := retrieval.NewRetriever(embedder, vectorStore, cfg.Pipeline.TopK)
	indexer := index.NewIndexer(vectorStore, embedder, cfg.Pipeline.Retries)
	sessions := session.NewManager(indexer)

	var researchTools []tools.Tool
	if cfg.Services.Tools.Enabled {
		toolTimeout := time.Duration(cfg.Services.Tools.Timeout) * time.Second
		researchTools = append(researchTools,
			tools.NewDuckDuckGo(cfg.Services.Tools.SearchURL, toolTimeout),
			tools.NewWikipedia(cfg.Services.Tools.WikipediaURL, toolTimeout),
		)
	}

	researcher := agents.NewAnalysisAgent(agents.ResearcherRole(researchTools...), retriever, llmClient)
	analyst := agents.NewAnalysisAgent(agents.AnalystRole(), retriever, llmClient)
	strategist := agents.NewAnalysisAgent(agents.StrategistRole(), retriever, llmClient)
	lead := agents.NewSynthesisAgent(agents.TeamLeadRole(), llmClient)

	orch := orchestrator.New(researcher, analyst, strategist, lead,
		time.Duration(cfg.Pipeline.AgentTimeout)*time.Second)

	server := api.NewServer(sessions, orch, !cfg.IsProduction())

	if err := server.Run(cfg.Server); err != nil {
		log.Printf("Failed to start server: %v", err)
		return
	}
}

func buildEmbedder(cfg *config.Config) embeddings.Embedder {
	if cfg.Services.Provider == "openai" {
		return embeddings.NewOpenAIEmbedder(cfg.Services.OpenAI.APIKey, cfg.Services.OpenAI.EmbeddingModel)
	}
	return embeddings.NewOllamaEmbedder(
		cfg.Services.Ollama.BaseURL,
		cfg.Services.Ollama.EmbeddingModel,
		time.Duration(cfg.Services.Ollama.Timeout)*time.Second,
	)
}

func buildLLMClient(cfg *config.Config) llm.Client {
	if cfg.Services.Provider == "openai" {
		return llm.NewOpenAIClient(cfg.Services.OpenAI.APIKey, cfg.Services.OpenAI.LLMModel)
	}
	return llm.NewOllamaClient(
		cfg.Services.Ollama.BaseURL,
		cfg.Services.Ollama.LLMModel,
		time.Duration(cfg.Services.Ollama.Timeout)*time.Second,
	)
}
