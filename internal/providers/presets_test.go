package providers

import "testing"

func TestNewPreset(t *testing.T) {
	p, err := New("DashScope", "sk-test", "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "dashscope" {
		t.Errorf("name = %q", p.Name())
	}
	if p.DefaultModel() != "qwen3-max" {
		t.Errorf("model = %q", p.DefaultModel())
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New("openai", "", "", ""); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := New("ollama", "", "", ""); err != nil {
		t.Errorf("ollama without key: %v", err)
	}
}

func TestNewCustomBase(t *testing.T) {
	if _, err := New("mystery", "k", "", "m"); err == nil {
		t.Error("unknown provider without base should fail")
	}
	p, err := New("mystery", "k", "http://localhost:8000/v1", "m")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.DefaultModel() != "m" {
		t.Errorf("model = %q", p.DefaultModel())
	}
}
