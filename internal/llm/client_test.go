package llm

import "testing"

func TestNewSelectsProvider(t *testing.T) {
	c, err := New("openai", "sk-test", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Errorf("provider = %T, want *OpenAIClient", c)
	}
	if c.Model() != "gpt-4o" {
		t.Errorf("default model = %q", c.Model())
	}

	c, err = New("anthropic", "sk-test", Options{Model: "claude-custom"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*AnthropicClient); !ok {
		t.Errorf("provider = %T, want *AnthropicClient", c)
	}
	if c.Model() != "claude-custom" {
		t.Errorf("model = %q, want claude-custom", c.Model())
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New("cohere", "key", Options{}); err == nil {
		t.Error("unknown provider should error")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("openai", "", Options{}); err == nil {
		t.Error("missing key should error")
	}
	if _, err := New("anthropic", "", Options{}); err == nil {
		t.Error("missing key should error")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}
	if o.maxTokens() != 4096 {
		t.Errorf("maxTokens = %d", o.maxTokens())
	}
	if o.temperature() != 0.1 {
		t.Errorf("temperature = %f", o.temperature())
	}

	o = Options{MaxTokens: 100, Temperature: 0.7}
	if o.maxTokens() != 100 || o.temperature() != 0.7 {
		t.Error("explicit options ignored")
	}
}
