// Package openai implements the ai interfaces using OpenAI-compatible
// embedding APIs through langchaingo. It works with any service that
// exposes the OpenAI embeddings endpoint, including Ollama, LocalAI and
// vLLM running locally.
package openai
