package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/extractor.txt
	extractorRaw string

	//go:embed template/responder.txt
	responderRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
	Extractor  string
	Responder  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Extractor:  strings.TrimSpace(extractorRaw),
		Responder:  strings.TrimSpace(responderRaw),
	}
}
