// Package translate provides the AI translation clients used to fill
// missing language fields. It supports OpenAI-format chat endpoints
// (including self-hosted ones via a custom base URL) and the Gemini
// API, extracts the JSON payload from free-form model output, and
// wraps providers in a circuit breaker so a dead endpoint fails fast.
package translate
