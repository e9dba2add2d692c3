package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/models"
	"legal-team-rag/internal/retrieval"
)

// LLMClient generates text from a fully assembled prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnalysisAgent produces a free-text response to a query, grounded in
// retrieved chunks and optionally augmented by external tools.
type AnalysisAgent struct {
	role      RoleConfig
	retriever *retrieval.Retriever
	llm       LLMClient
}

func NewAnalysisAgent(role RoleConfig, retriever *retrieval.Retriever, llm LLMClient) *AnalysisAgent {
	return &AnalysisAgent{
		role:      role,
		retriever: retriever,
		llm:       llm,
	}
}

// Name returns the agent's role name.
func (a *AnalysisAgent) Name() string {
	return a.role.Name
}

// Run answers the query. Knowledge retrieval and model failures are
// fatal to the call; tool failures are absorbed and only noted in the
// prompt.
func (a *AnalysisAgent) Run(ctx context.Context, query string) (models.AgentResponse, error) {
	var chunks []models.Chunk
	if a.role.SearchKnowledge && a.retriever != nil {
		retrieved, err := a.retriever.Retrieve(ctx, query)
		if err != nil {
			return models.AgentResponse{}, err
		}
		chunks = retrieved
	}

	findings := a.consultTools(ctx, query)

	prompt := a.buildPrompt(query, chunks, findings)

	answer, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return models.AgentResponse{}, pipeerrors.Wrap(pipeerrors.KindInference,
			fmt.Sprintf("%s inference failed", a.role.Name), err)
	}

	return models.AgentResponse{Agent: a.role.Name, Content: answer}, nil
}

// toolFinding is one tool's contribution, or a note that it was
// unavailable.
type toolFinding struct {
	tool        string
	text        string
	unavailable bool
}

// consultTools invokes each configured tool. A failing tool degrades
// answer quality but never aborts the agent.
func (a *AnalysisAgent) consultTools(ctx context.Context, query string) []toolFinding {
	findings := make([]toolFinding, 0, len(a.role.Tools))
	for _, tool := range a.role.Tools {
		if ctx.Err() != nil {
			break
		}
		text, err := tool.Invoke(ctx, query)
		if err != nil {
			log.Printf("Tool %s unavailable for %s: %v", tool.Name(), a.role.Name, err)
			findings = append(findings, toolFinding{tool: tool.Name(), unavailable: true})
			continue
		}
		findings = append(findings, toolFinding{tool: tool.Name(), text: text})
	}
	return findings
}

// buildPrompt assembles the role description, instructions, retrieved
// chunks, tool findings, and the query into one prompt.
func (a *AnalysisAgent) buildPrompt(query string, chunks []models.Chunk, findings []toolFinding) string {
	var sb strings.Builder

	sb.WriteString(a.role.Description)
	sb.WriteString("\n\nInstructions:\n")
	for _, instruction := range a.role.Instructions {
		sb.WriteString("- ")
		sb.WriteString(instruction)
		sb.WriteString("\n")
	}

	if len(chunks) > 0 {
		sb.WriteString("\nRelevant document excerpts:\n")
		for i, chunk := range chunks {
			sb.WriteString(fmt.Sprintf("\nExcerpt %d (from %s, section %d):\n", i+1, chunk.DocumentID, chunk.Index+1))
			sb.WriteString(chunk.Content)
			sb.WriteString("\n---\n")
		}
	}

	if len(findings) > 0 {
		sb.WriteString("\nExternal research findings:\n")
		for _, finding := range findings {
			if finding.unavailable {
				sb.WriteString(fmt.Sprintf("\n[%s was unavailable]\n", finding.tool))
				continue
			}
			sb.WriteString(fmt.Sprintf("\nFrom %s:\n%s\n", finding.tool, finding.text))
		}
	}

	sb.WriteString(fmt.Sprintf("\nQuery: %s\n", query))
	sb.WriteString("\nGround your answer in the document excerpts above and cite them where possible.\n\nAnswer: ")

	return sb.String()
}
