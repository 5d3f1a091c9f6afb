package moderation

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed wordlist/*.txt
var wordlistFS embed.FS

// DefaultWords returns the embedded moderation dictionary, one word per
// line, '#' starting a comment.
func DefaultWords() ([]string, error) {
	entries, err := wordlistFS.ReadDir("wordlist")
	if err != nil {
		return nil, err
	}

	var words []string
	for _, entry := range entries {
		f, err := wordlistFS.Open("wordlist/" + entry.Name())
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}
		_ = f.Close()
	}
	return words, nil
}
