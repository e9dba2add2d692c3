package agents

import (
	"context"
	"strings"

	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/models"
)

// SynthesisAgent merges a single text blob into one referenced
// narrative. It is stateless across calls: each run is an independent
// synthesis with no memory of prior calls.
type SynthesisAgent struct {
	role RoleConfig
	llm  LLMClient
}

func NewSynthesisAgent(role RoleConfig, llm LLMClient) *SynthesisAgent {
	return &SynthesisAgent{
		role: role,
		llm:  llm,
	}
}

// Name returns the agent's role name.
func (s *SynthesisAgent) Name() string {
	return s.role.Name
}

// Run produces a merged narrative from the combined text, typically the
// labeled concatenation of analysis responses or a prior report.
func (s *SynthesisAgent) Run(ctx context.Context, combined string) (models.AgentResponse, error) {
	var sb strings.Builder
	sb.WriteString(s.role.Description)
	sb.WriteString("\n\nInstructions:\n")
	for _, instruction := range s.role.Instructions {
		sb.WriteString("- ")
		sb.WriteString(instruction)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(combined)

	answer, err := s.llm.Generate(ctx, sb.String())
	if err != nil {
		return models.AgentResponse{}, pipeerrors.Wrap(pipeerrors.KindInference, "synthesis inference failed", err)
	}

	return models.AgentResponse{Agent: s.role.Name, Content: answer}, nil
}
