// Package orchestrator sequences agent calls for one query: concurrent
// fan-out to the analysis agents, barrier join, then synthesis.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"legal-team-rag/internal/models"
)

// State is the per-query lifecycle position.
type State string

const (
	StateIdle         State = "idle"
	StateResearching  State = "researching"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Agent is an analysis agent from the orchestrator's point of view.
type Agent interface {
	Name() string
	Run(ctx context.Context, query string) (models.AgentResponse, error)
}

// Synthesizer merges combined text into one narrative.
type Synthesizer interface {
	Run(ctx context.Context, combined string) (models.AgentResponse, error)
}

// Prompt fragments for the synthesis passes.
const (
	synthesisPreamble = "Summarize and integrate the following insights gathered using the full contract data:\n\n"
	synthesisTrailer  = "Provide a structured legal analysis report that includes key terms, obligations, potential risks and recommendations with references to the document."
	keyPointsPrompt   = "Summarize the key legal points from this analysis:\n"
	recommendPrompt   = "Provide specific legal recommendations based on this analysis:\n"
)

// Orchestrator coordinates one query across the agent team. The three
// analysis agents are independent; their fixed order here determines
// the order of the labeled sections in the synthesis input, not their
// execution order.
type Orchestrator struct {
	researcher   Agent
	analyst      Agent
	strategist   Agent
	lead         Synthesizer
	agentTimeout time.Duration
}

func New(researcher, analyst, strategist Agent, lead Synthesizer, agentTimeout time.Duration) *Orchestrator {
	if agentTimeout <= 0 {
		agentTimeout = 3 * time.Minute
	}
	return &Orchestrator{
		researcher:   researcher,
		analyst:      analyst,
		strategist:   strategist,
		lead:         lead,
		agentTimeout: agentTimeout,
	}
}

// agentResult pairs a fixed slot with one agent's outcome.
type agentResult struct {
	slot int
	resp models.AgentResponse
	err  error
}

// Analyze runs the full query pipeline and returns the merged report.
// All three analysis agents must succeed; any failure aborts the query
// before synthesis. The caller's context cancels in-flight calls.
func (o *Orchestrator) Analyze(ctx context.Context, query string) (models.Report, error) {
	state := StateIdle
	transition := func(next State) {
		state = next
		log.Printf("Query state: %s", state)
	}

	transition(StateResearching)

	// Fan out. Each call gets its own timeout so one stalled agent
	// cannot block the others indefinitely; the shared cancel tears the
	// rest down as soon as one fails.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	team := []Agent{o.researcher, o.analyst, o.strategist}
	results := make(chan agentResult, len(team))
	for i, agent := range team {
		go func(slot int, agent Agent) {
			callCtx, callCancel := context.WithTimeout(runCtx, o.agentTimeout)
			defer callCancel()

			resp, err := agent.Run(callCtx, query)
			results <- agentResult{slot: slot, resp: resp, err: err}
		}(i, agent)
	}

	// Barrier: all three must complete before synthesis.
	responses := make([]models.AgentResponse, len(team))
	var firstErr error
	for range team {
		result := <-results
		if result.err != nil && firstErr == nil {
			firstErr = result.err
			cancel()
		}
		responses[result.slot] = result.resp
	}

	if firstErr != nil {
		transition(StateFailed)
		return models.Report{}, firstErr
	}

	transition(StateSynthesizing)

	combined := combineResponses(responses)
	merged, err := o.lead.Run(ctx, combined)
	if err != nil {
		transition(StateFailed)
		return models.Report{}, err
	}

	transition(StateDone)
	return models.Report{Analysis: merged.Content}, nil
}

// combineResponses builds the labeled concatenation in the fixed order
// Researcher, ContractAnalyst, StrategyAgent, regardless of which
// finished first.
func combineResponses(responses []models.AgentResponse) string {
	combined := synthesisPreamble
	labels := []string{"Legal Researcher Response", "Contract Analyst Response", "Legal Strategy Response"}
	for i, label := range labels {
		combined += fmt.Sprintf("%s:\n%s\n", label, responses[i].Content)
	}
	return combined + synthesisTrailer
}

// KeyPoints derives the key-points summary from the report text alone.
// Independent of Analyze and re-runnable without a new research pass.
func (o *Orchestrator) KeyPoints(ctx context.Context, report string) (string, error) {
	resp, err := o.lead.Run(ctx, keyPointsPrompt+report)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Recommendations derives the recommendations list from the report
// text alone.
func (o *Orchestrator) Recommendations(ctx context.Context, report string) (string, error) {
	resp, err := o.lead.Run(ctx, recommendPrompt+report)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
