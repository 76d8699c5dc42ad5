package llm

import (
	"regexp"
	"strings"
)

var thinkBlockExpr = regexp.MustCompile(`(?s)<think>.*?</think>\n?`)

// stripThinkTags removes reasoning blocks some local models emit before
// their actual answer.
func stripThinkTags(text string) string {
	return strings.TrimSpace(thinkBlockExpr.ReplaceAllString(text, ""))
}

// accentFixes repairs French words the models routinely emit without
// accents. Ordered pairs, applied with plain substring replacement.
var accentFixes = [][2]string{
	{"crez", "créez"},
	{"prsence", "présence"},
	{"revolutionnaire", "révolutionnaire"},
	{"editeur", "éditeur"},
	{"fonctionnalites", "fonctionnalités"},
	{"donnees", "données"},
	{"genere", "génère"},
	{"ameliore", "améliore"},
	{"integre", "intègre"},
}

// fixFrenchAccents applies the repair table.
func fixFrenchAccents(text string) string {
	for _, fix := range accentFixes {
		text = strings.ReplaceAll(text, fix[0], fix[1])
	}
	return text
}

// cleanOutput is the full post-processing applied to every generation.
func cleanOutput(text string) string {
	return fixFrenchAccents(stripThinkTags(text))
}
