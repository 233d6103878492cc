package content

import (
	"fmt"
	"strings"
)

// TemplateVariant selects the newsletter skeleton document and the injection
// strategy that goes with it. Each variant owns exactly one template file.
type TemplateVariant int

const (
	TemplateVariantStandard TemplateVariant = iota
	TemplateVariantFertility
	TemplateVariantQA
	TemplateVariantMarketing
	TemplateVariantFertilityDigest
	TemplateVariantPaidDigest
	TemplateVariantLatestTeaser
)

var variantNames = map[TemplateVariant]string{
	TemplateVariantStandard:        "standard",
	TemplateVariantFertility:       "fertility",
	TemplateVariantQA:              "qa",
	TemplateVariantMarketing:       "marketing",
	TemplateVariantFertilityDigest: "fertility_digest",
	TemplateVariantPaidDigest:      "paid_digest",
	TemplateVariantLatestTeaser:    "latest_teaser",
}

var variantValues = func() map[string]TemplateVariant {
	m := make(map[string]TemplateVariant, len(variantNames))
	for v, n := range variantNames {
		m[n] = v
	}
	return m
}()

func (v TemplateVariant) String() string {
	if n, ok := variantNames[v]; ok {
		return n
	}
	return fmt.Sprintf("TemplateVariant(%d)", int(v))
}

func (v TemplateVariant) IsValid() bool {
	_, ok := variantNames[v]
	return ok
}

// ParseTemplateVariant converts a string to a TemplateVariant.
func ParseTemplateVariant(name string) (TemplateVariant, error) {
	if v, ok := variantValues[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v, nil
	}
	return TemplateVariant(0), fmt.Errorf("%s is not a valid TemplateVariant, try [%s]", name, strings.Join(TemplateVariantNames(), ", "))
}

// TemplateVariantNames returns a list of possible string values of TemplateVariant.
func TemplateVariantNames() []string {
	return []string{
		variantNames[TemplateVariantStandard],
		variantNames[TemplateVariantFertility],
		variantNames[TemplateVariantQA],
		variantNames[TemplateVariantMarketing],
		variantNames[TemplateVariantFertilityDigest],
		variantNames[TemplateVariantPaidDigest],
		variantNames[TemplateVariantLatestTeaser],
	}
}

// MarshalText implements the text marshaller method.
func (v TemplateVariant) MarshalText() ([]byte, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("TemplateVariant(%d) is not a valid value", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements the text unmarshaller method.
func (v *TemplateVariant) UnmarshalText(text []byte) error {
	val, err := ParseTemplateVariant(string(text))
	if err != nil {
		return err
	}
	*v = val
	return nil
}
