package models

// AnalysisType selects one of the predefined query templates, or a
// free-text custom question.
type AnalysisType string

const (
	ContractReview  AnalysisType = "contract_review"
	LegalResearch   AnalysisType = "legal_research"
	RiskAssessment  AnalysisType = "risk_assessment"
	ComplianceCheck AnalysisType = "compliance_check"
	CustomQuery     AnalysisType = "custom"
)

// predefinedQueries maps each analysis type to the query text sent to
// the agent team.
var predefinedQueries = map[AnalysisType]string{
	ContractReview: "Analyze this document, contract, or agreement using all available data from the knowledge base. " +
		"Identify key terms, obligations, and risks in detail.",
	LegalResearch: "Using all available data from the knowledge base, find relevant legal cases and precedents related to this document, contract, or agreement. " +
		"Provide detailed references and sources.",
	RiskAssessment: "Extract all data from the knowledge base and identify potential legal risks in this document, contract, or agreement. " +
		"Detail specific risk areas and reference sections of the text.",
	ComplianceCheck: "Evaluate this document, contract, or agreement for compliance with legal regulations using all available data from the knowledge base. " +
		"Highlight any areas of concern and suggest corrective actions.",
}

// Valid reports whether t is a known analysis type.
func (t AnalysisType) Valid() bool {
	if t == CustomQuery {
		return true
	}
	_, ok := predefinedQueries[t]
	return ok
}

// QueryText resolves the analysis type to the query text the agents
// receive. For CustomQuery the caller-supplied question is used as-is.
func (t AnalysisType) QueryText(custom string) string {
	if t == CustomQuery {
		return custom
	}
	return predefinedQueries[t]
}

// AgentResponse is the free-text output of a single agent run.
type AgentResponse struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

// Report is the synthesized output for one query. KeyPoints and
// Recommendations are filled only when the corresponding views were
// requested; they are derived from Analysis, never from raw chunks.
type Report struct {
	Analysis        string `json:"analysis"`
	KeyPoints       string `json:"key_points,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
}
