package ai

// ModelInfo is the little the chat bridge needs to know about a model.
type ModelInfo struct {
	Name          string
	ContextTokens int // approximate context window
}

var models = map[string]ModelInfo{
	"claude-2.1":                       {Name: "claude-2.1", ContextTokens: 200000},
	"claude-2.0":                       {Name: "claude-2.0", ContextTokens: 100000},
	"claude-instant-1.2":               {Name: "claude-instant-1.2", ContextTokens: 100000},
	"anthropic/claude-3-haiku":         {Name: "anthropic/claude-3-haiku", ContextTokens: 200000},
	"anthropic/claude-3.5-sonnet":      {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", ContextTokens: 131072},
	"llama3:latest":                    {Name: "llama3:latest", ContextTokens: 8192},
	"llama3.1:8b-instruct":             {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"mistral:7b-instruct":              {Name: "mistral:7b-instruct", ContextTokens: 8192},
	"phi3:mini-4k-instruct":            {Name: "phi3:mini-4k-instruct", ContextTokens: 4096},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ContextBudget returns the prompt token budget for model after reserving
// maxTokens for the completion. Unknown models get a conservative 8K window.
func ContextBudget(model string, maxTokens int) int {
	window := 8192
	if mi, ok := LookupModel(model); ok && mi.ContextTokens > 0 {
		window = mi.ContextTokens
	}
	budget := window - maxTokens
	if budget < 0 {
		return 0
	}
	return budget
}
