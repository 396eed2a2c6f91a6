// Package llm provides the reasoning service used to draft, validate, and
// reconcile announcements. It supports OpenAI and Anthropic providers with
// rate limiting, retry logic, and tolerant decoding of structured replies.
package llm
