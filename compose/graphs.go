package compose

import (
	"fmt"
	"regexp"
	"strconv"

	"mailstage/content"
)

var graphTokenRe = regexp.MustCompile(`\[\[GRAPH_(\d+)\]\]`)

// resolveGraphPlaceholders substitutes [[GRAPH_1]], [[GRAPH_2]], ... with
// styled inline image blocks, index 0 of graphs resolving GRAPH_1. Tokens
// with no matching descriptor stay verbatim, keeping missing data visible in
// the output instead of silently dropped. Runs on the serialized string
// because the tokens are opaque text, not tree nodes.
func resolveGraphPlaceholders(markup string, graphs []content.Graph) string {
	return graphTokenRe.ReplaceAllStringFunc(markup, func(token string) string {
		n, err := strconv.Atoi(graphTokenRe.FindStringSubmatch(token)[1])
		if err != nil || n < 1 || n > len(graphs) {
			return token
		}
		g := graphs[n-1]
		if g.URL == "" {
			// slot declared but never filled, keep the token visible
			return token
		}
		alt := g.Alt
		if alt == "" {
			alt = fmt.Sprintf("Graph %d", n)
		}
		return fmt.Sprintf(
			`<div style="position: relative; display: inline-block; width: 100%%; margin: 16px 0;">`+
				`<img alt="%s" class="fluid" src="%s"`+
				` style="width: 100%%; max-width: 552px; height: auto; display: block; border-radius: 8px;">`+
				`</div>`,
			escapeAttr(alt), escapeAttr(g.URL))
	})
}
