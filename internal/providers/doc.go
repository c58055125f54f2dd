// Package providers implements the Reviewer interface for each supported LLM
// provider.
//
// Supported providers: DashScope (Qwen, the default), OpenAI and compatible
// servers, Anthropic (Claude), Google (Gemini), and Ollama for local models.
//
// Providers make exactly one call per review. There is no retry or back-off:
// any error is returned to the caller, which falls back to heuristic
// detection. HTTP clients and base URLs are injected through [Settings] so
// tests can redirect calls to local httptest servers.
//
// Use [New] to obtain a Reviewer by provider name.
package providers
