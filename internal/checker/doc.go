// Package checker defines the contract for remote grammar/style
// checker services and provides two implementations: a
// LanguageTool-protocol HTTP client and an Anthropic-model-backed
// client.
//
// Both implementations return findings with rune offsets into the
// exact text submitted, so downstream code never handles byte or
// UTF-16 indexing.
package checker
