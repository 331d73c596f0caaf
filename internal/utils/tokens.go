package utils

// CountTokens estimates the number of tokens in the given text.
// We approximate 1 token ~= 4 characters (rough heuristic).
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit keeps the trailing part of text that fits roughly within limit tokens.
// Chat prompts grow at the front (oldest history), so the most recent turns survive.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[len(runes)-charLimit:])
}
