package normalize

import "strings"

// Vocabulary is matched as plain case-insensitive substrings, so "java" also
// hits "javascript" text. Order here is the order tags are emitted in.
var Vocabulary = []string{
	// languages
	"javascript", "typescript", "python", "java", "golang", "rust", "ruby", "php",
	"kotlin", "swift", "scala", "c++", "c#", ".net",
	// frameworks and runtimes
	"react", "angular", "vue", "svelte", "next.js", "node", "express", "django",
	"flask", "fastapi", "spring", "rails", "laravel", "flutter", "graphql",
	"html", "css", "tailwind",
	// data
	"sql", "mongodb", "postgresql", "mysql", "redis", "elasticsearch", "kafka",
	"machine learning", "deep learning", "data science", "tensorflow", "pytorch",
	// cloud and ops
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "linux", "ci/cd", "devops",
	// methodologies
	"agile", "scrum", "microservices", "tdd",
}

func ExtractTags(text string) []string {
	lower := strings.ToLower(text)
	out := make([]string, 0, 8)
	if strings.TrimSpace(lower) == "" {
		return out
	}
	for _, kw := range Vocabulary {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func mergeTags(extracted []string, hints []string) []string {
	seen := make(map[string]struct{}, len(extracted)+len(hints))
	out := make([]string, 0, len(extracted)+len(hints))
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range extracted {
		add(t)
	}
	for _, t := range hints {
		add(t)
	}
	return out
}
