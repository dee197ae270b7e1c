package domain

// SubagentTask describes a delegated background task. Origin fields record
// the conversation the result must be announced back to.
type SubagentTask struct {
	Task           string
	Label          string
	OriginChannel  string
	OriginChatID   string
	ContextSummary string
	RelevantFiles  []string
	UserContext    string
}
