package providers

import (
	"fmt"
	"strings"
)

// preset holds the endpoint defaults of an OpenAI-compatible backend.
type preset struct {
	base  string
	model string
}

var presets = map[string]preset{
	"openai":     {base: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	"openrouter": {base: "https://openrouter.ai/api/v1", model: "anthropic/claude-sonnet-4"},
	"groq":       {base: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile"},
	"dashscope":  {base: "https://dashscope-intl.aliyuncs.com/compatible-mode/v1", model: "qwen3-max"},
	"deepseek":   {base: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	"ollama":     {base: "http://localhost:11434/v1", model: "llama3.2"},
}

// Names lists the known provider presets.
func Names() []string {
	return []string{"openai", "openrouter", "groq", "dashscope", "deepseek", "ollama"}
}

// New builds a provider from a preset name. apiBase and model override the
// preset. An unknown name is accepted when apiBase is given.
func New(name, apiKey, apiBase, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	p, known := presets[name]
	if !known && apiBase == "" {
		return nil, fmt.Errorf("unknown provider %q and no api_base set", name)
	}
	if apiBase == "" {
		apiBase = p.base
	}
	if model == "" {
		model = p.model
	}
	if model == "" {
		return nil, fmt.Errorf("provider %q: model is required", name)
	}
	if apiKey == "" && name != "ollama" {
		return nil, fmt.Errorf("provider %q: api key is required", name)
	}
	return NewOpenAIProvider(name, apiKey, apiBase, model), nil
}
