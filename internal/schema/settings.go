package schema

// Settings holds the per-request LLM parameters used by the orchestrator.
type Settings struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	MemoryWindow int // number of history messages included per request
}

func NewSettings(model string, maxTokens int, temperature float64, memoryWindow int) Settings {
	return Settings{
		Model:        model,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		MemoryWindow: memoryWindow,
	}
}
