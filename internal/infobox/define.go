package infobox

import (
	"context"
	"fmt"
	"regexp"
)

var definitionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^what does ([a-zA-Z]+) mean$`),
	regexp.MustCompile(`(?i)^define ([a-zA-Z]+)$`),
}

// wiktionaryResponse 只取第一条英文释义与词性，其余字段忽略。
type wiktionaryResponse struct {
	En []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"en"`
}

// lookupDefinition 识别 “define X” / “what does X mean” 并查询 Wiktionary。
func (r *Resolver) lookupDefinition(ctx context.Context, query string) *Infobox {
	word := matchDefinitionWord(query)
	if word == "" {
		return nil
	}

	var payload wiktionaryResponse
	url := fmt.Sprintf("%s/page/definition/%s", r.wiktionaryBase, word)
	if !r.getJSON(ctx, url, &payload) {
		return nil
	}
	if len(payload.En) == 0 {
		return nil
	}

	first := payload.En[0]
	definition := ""
	for _, d := range first.Definitions {
		if d.Definition != "" {
			definition = d.Definition
			break
		}
	}

	return &Infobox{
		Infotype:   "definition",
		Word:       word,
		Type:       first.PartOfSpeech,
		Definition: definition,
		URL:        "https://en.wiktionary.org/wiki/" + word,
	}
}

func matchDefinitionWord(query string) string {
	for _, pattern := range definitionPatterns {
		if match := pattern.FindStringSubmatch(query); match != nil {
			return match[1]
		}
	}
	return ""
}
