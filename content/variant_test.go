package content

import (
	"strings"
	"testing"
)

func TestTemplateVariantRoundTrip(t *testing.T) {
	for _, name := range TemplateVariantNames() {
		v, err := ParseTemplateVariant(name)
		if err != nil {
			t.Fatalf("ParseTemplateVariant(%q): %v", name, err)
		}
		if v.String() != name {
			t.Errorf("round trip %q -> %v", name, v)
		}
		if !v.IsValid() {
			t.Errorf("%q parsed to invalid variant", name)
		}
	}
}

func TestParseTemplateVariantNormalizes(t *testing.T) {
	v, err := ParseTemplateVariant("  Latest_Teaser ")
	if err != nil {
		t.Fatal(err)
	}
	if v != TemplateVariantLatestTeaser {
		t.Errorf("got %v", v)
	}
}

func TestParseTemplateVariantUnknown(t *testing.T) {
	_, err := ParseTemplateVariant("weekly")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "standard") {
		t.Errorf("error does not list valid values: %v", err)
	}
}

func TestTemplateVariantText(t *testing.T) {
	b, err := TemplateVariantQA.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "qa" {
		t.Errorf("MarshalText = %q", b)
	}

	var v TemplateVariant
	if err := v.UnmarshalText([]byte("paid_digest")); err != nil {
		t.Fatal(err)
	}
	if v != TemplateVariantPaidDigest {
		t.Errorf("UnmarshalText = %v", v)
	}

	if _, err := TemplateVariant(99).MarshalText(); err == nil {
		t.Error("MarshalText must fail for invalid value")
	}
}
