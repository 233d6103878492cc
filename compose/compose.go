package compose

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"mailstage/content"
)

type injector func(*html.Node, *content.Fields, *zap.Logger)

var injectors = map[content.TemplateVariant]injector{
	content.TemplateVariantStandard:        injectStandard,
	content.TemplateVariantFertility:       injectFertility,
	content.TemplateVariantQA:              injectQA,
	content.TemplateVariantMarketing:       injectMarketing,
	content.TemplateVariantFertilityDigest: injectFertilityDigest,
	content.TemplateVariantPaidDigest:      injectPaidDigest,
	content.TemplateVariantLatestTeaser:    injectLatestTeaser,
}

// BuildEmail merges the field bag into the variant's template skeleton and
// returns the finished, mail-client-safe document. The call is pure and
// request-scoped: the parsed tree lives only for its duration and nothing is
// shared across calls. A missing optional slot degrades to a no-op; a field
// bag missing a variant-required field or an unparseable template aborts the
// whole call with no partial output.
func BuildEmail(templateHTML string, variant content.TemplateVariant, fields *content.Fields, log *zap.Logger) (string, error) {
	inject, ok := injectors[variant]
	if !ok {
		return "", fmt.Errorf("no injection strategy for template variant %s", variant)
	}
	if err := fields.Validate(variant); err != nil {
		return "", fmt.Errorf("invalid fields for template variant %s: %w", variant, err)
	}

	doc, err := parseDocument(templateHTML)
	if err != nil {
		return "", fmt.Errorf("unable to parse template: %w", err)
	}

	inject(doc, fields, log.Named("inject"))

	out := renderDocument(doc)
	out = resolveGraphPlaceholders(out, fields.InlineGraphs)
	return ApplyEmailFixes(out), nil
}
