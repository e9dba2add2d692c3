// Package agents implements the role-specialized reasoning units of the
// legal team: three analysis agents and the synthesizing team lead.
package agents

import "legal-team-rag/internal/tools"

// Role names, also used as provenance labels on responses.
const (
	RoleResearcher = "Legal Researcher"
	RoleAnalyst    = "Contract Analyst"
	RoleStrategist = "Legal Strategy Agent"
	RoleTeamLead   = "Team Lead"
)

// RoleConfig is a data-driven agent role: a name, an instruction list,
// an optional tool set, and whether the agent grounds its answers in
// the knowledge base. New roles are added by adding records, not code.
type RoleConfig struct {
	Name            string
	Description     string
	Instructions    []string
	Tools           []tools.Tool
	SearchKnowledge bool
}

// ResearcherRole returns the Legal Researcher configuration. The
// researcher is the only analysis role holding external tools; that is
// a policy choice carried in configuration.
func ResearcherRole(researchTools ...tools.Tool) RoleConfig {
	return RoleConfig{
		Name:        RoleResearcher,
		Description: "A Legal Researcher AI agent that finds and cites relevant legal cases, regulations, and precedents using all data in the knowledge base.",
		Instructions: []string{
			"Extract all available data from the knowledge base and search for legal cases, regulations, and citations.",
			"If needed, use the web search or encyclopedia tools for additional legal information and references.",
			"Always provide source references in your answers.",
		},
		Tools:           researchTools,
		SearchKnowledge: true,
	}
}

// AnalystRole returns the Contract Analyst configuration.
func AnalystRole() RoleConfig {
	return RoleConfig{
		Name:        RoleAnalyst,
		Description: "A Contract Analyst AI agent that reviews contracts and identifies key clauses, risks, and obligations using the full document data.",
		Instructions: []string{
			"Extract all available data from the knowledge base and analyze the contract to identify key clauses, risks, obligations and potential ambiguities.",
			"Reference specific sections of the contract where possible.",
		},
		SearchKnowledge: true,
	}
}

// StrategistRole returns the Legal Strategy configuration.
func StrategistRole() RoleConfig {
	return RoleConfig{
		Name:        RoleStrategist,
		Description: "A legal strategist AI agent that provides comprehensive risk assessment and strategic recommendations based on all the available data from the contract.",
		Instructions: []string{
			"Using all data from the knowledge base, assess the contract for legal risks and opportunities.",
			"Provide actionable recommendations and ensure compliance with applicable laws.",
		},
		SearchKnowledge: true,
	}
}

// TeamLeadRole returns the synthesizing Team Lead configuration. The
// lead never searches the knowledge base; it works from the other
// agents' text alone.
func TeamLeadRole() RoleConfig {
	return RoleConfig{
		Name:        RoleTeamLead,
		Description: "Team Lead AI - Integrates responses from the Legal Researcher, Contract Analyst, and Legal Strategist into a comprehensive report.",
		Instructions: []string{
			"Combine and summarize all insights provided by the Legal Researcher, Contract Analyst, and Legal Strategist.",
			"Ensure the final report includes references to all relevant sections from the document.",
		},
	}
}
