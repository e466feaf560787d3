package config

import (
	"errors"
	"fmt"
)

// ErrMissingSecret is returned when a required API credential is absent
var ErrMissingSecret = errors.New("missing required secret")

// Validate checks that both external collaborators are reachable with
// credentials and that enumerated settings hold known values.
func (c *Config) Validate() error {
	if c.Search.APIKey == "" {
		return fmt.Errorf("%w: search API key (PERPLEXITY_API_KEY) not found in environment variables", ErrMissingSecret)
	}

	if err := c.validateCompletionCredential(); err != nil {
		return err
	}

	switch c.Dataset.Driver {
	case "csv", "sqlite":
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path is required for driver %q", c.Dataset.Driver)
		}
	case "mysql", "postgres", "mongo":
		if c.Dataset.DSN == "" {
			return fmt.Errorf("dataset.dsn is required for driver %q", c.Dataset.Driver)
		}
	default:
		return fmt.Errorf("unsupported dataset driver: %s", c.Dataset.Driver)
	}

	if c.Dataset.FirstTurnSample <= 0 || c.Dataset.FollowUpSample <= 0 {
		return errors.New("dataset sample sizes must be positive")
	}

	switch c.Routing.Mode {
	case "llm", "keyword":
	default:
		return fmt.Errorf("unsupported routing mode: %s", c.Routing.Mode)
	}

	switch c.Session.Store {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unsupported session store: %s", c.Session.Store)
	}

	if c.Session.TTL < 0 {
		return errors.New("session ttl must not be negative")
	}

	if c.Security.RateLimit.Enabled && c.Session.Store != "redis" {
		return errors.New("rate limiting requires the redis session store")
	}

	return nil
}

func (c *Config) validateCompletionCredential() error {
	var present bool
	var name string

	switch c.LLM.DefaultProvider {
	case "openai":
		present, name = c.LLM.OpenAI.APIKey != "", "OPENAI_API_KEY"
	case "anthropic":
		present, name = c.LLM.Anthropic.APIKey != "", "ANTHROPIC_API_KEY"
	case "deepseek":
		present, name = c.LLM.DeepSeek.APIKey != "", "DEEPSEEK_API_KEY"
	case "gemini":
		present, name = c.LLM.Gemini.APIKey != "", "GEMINI_API_KEY"
	case "langchain":
		present, name = c.LLM.LangChain.APIKey != "", "LANGCHAIN_API_KEY"
	case "ollama":
		present, name = c.LLM.Ollama.Host != "", "OLLAMA_HOST"
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.DefaultProvider)
	}

	if !present {
		return fmt.Errorf("%w: %s API key (%s) not found in environment variables", ErrMissingSecret, c.LLM.DefaultProvider, name)
	}
	return nil
}
