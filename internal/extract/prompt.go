package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PromptBudget is the maximum prompt length in characters for both the
// per-chunk and the merge calls. It is tied to the 4096-token context window.
const PromptBudget = 3500

// Sentinel is what the model writes for a chunk without alloy data.
const Sentinel = "No alloy information"

const exampleBlock = `Example:
Melting temperature: 1600 °C
Alloy composition: Fe 70%, Cr 20%, Ni 10%
Hardness: 350 HB
`

// ChunkPromptTemplate precedes each chunk's text.
const ChunkPromptTemplate = `Extract all explicitly stated information about metallic alloys from the text.
List each property on a new line in format: "Property name: value"
Use original wording and units from the text.
If no alloy information found, write "` + Sentinel + `".

` + exampleBlock + `
Text:
`

// MergePromptTemplate precedes the numbered chunk results.
const MergePromptTemplate = `Combine all information about metallic alloys from the summaries below.
List each property on a new line in format: "Property name: value"
Merge duplicates - if the same property appears multiple times, keep the most complete version.
Use original wording and units.

` + exampleBlock + `
Summaries:
`

// ChunkParams decodes one window's property list.
var ChunkParams = GenerateParams{
	Temperature:   0,
	TopP:          0.9,
	TopK:          20,
	MaxTokens:     500,
	RepeatPenalty: 1.1,
	Stop:          []string{"\n\nText:", "\n\nText"},
}

// MergeParams decodes the consolidated list.
var MergeParams = GenerateParams{
	Temperature:   0,
	TopP:          0.9,
	TopK:          20,
	MaxTokens:     1000,
	RepeatPenalty: 1.1,
	Stop:          []string{"\n\nSummaries", "\n\nSummaries:"},
}

// BuildChunkPrompt appends chunk text to the extraction instruction.
func BuildChunkPrompt(chunk string) string {
	return fitPrompt(ChunkPromptTemplate, chunk, PromptBudget)
}

// BuildMergePrompt appends numbered results to the merge instruction.
func BuildMergePrompt(entries []string) string {
	return fitPrompt(MergePromptTemplate, numberEntries(entries), PromptBudget)
}

func numberEntries(entries []string) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("Entry %d:\n%s", i+1, e)
	}
	return strings.Join(parts, "\n\n")
}

// fitPrompt joins template and content, cutting content so the result is at
// most budget characters. The template is never shortened.
func fitPrompt(template, content string, budget int) string {
	room := budget - utf8.RuneCountInString(template)
	if utf8.RuneCountInString(content) <= room {
		return template + content
	}
	if room <= 0 {
		return template
	}
	return template + truncateRunes(content, room)
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
