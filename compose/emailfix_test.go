package compose

import (
	"strings"
	"testing"
)

func wrapDoc(body string) string {
	return `<!DOCTYPE html><html><head><title>t</title><style>.tablebox{color:#000}</style></head><body>` +
		body + `</body></html>`
}

func TestApplyEmailFixesIdempotent(t *testing.T) {
	fixtures := map[string]string{
		"semantic tags": wrapDoc(`<p><strong>b</strong> and <em>i</em> and <u>u</u></p>`),
		"plain anchor":  wrapDoc(`<p style="font-size:14px">see <a href="x">text</a></p>`),
		"image anchor":  wrapDoc(`<p><a href="x"> <img src="i.png"> </a></p>`),
		"heights":       wrapDoc(`<table style="height:1886.73px"><tbody><tr><td style="height:120px">x</td></tr></tbody></table>`),
		"mixed": wrapDoc(`<table><tbody><tr>` +
			`<td class="table-box-mobile" style="padding-top: 0;"><p>a <a href="u" style="color:#054f8b;">link</a></p></td>` +
			`</tr></tbody></table>`),
	}
	for name, src := range fixtures {
		t.Run(name, func(t *testing.T) {
			once := ApplyEmailFixes(src)
			twice := ApplyEmailFixes(once)
			if once != twice {
				t.Errorf("pipeline is not idempotent:\n first: %s\nsecond: %s", once, twice)
			}
		})
	}
}

func TestSemanticTagRewrite(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p><strong>b</strong><b style="color:red">r</b><em>i</em><u>u</u></p>`))
	for _, want := range []string{
		`<span style="font-weight:bold;">b</span>`,
		`<span style="font-weight:bold;color:red">r</span>`,
		`<span style="font-style:italic;">i</span>`,
		`<span style="text-decoration:underline;">u</span>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, gone := range []string{"<strong", "<em", "<u>", "<b "} {
		if strings.Contains(out, gone) {
			t.Errorf("semantic tag %q survived:\n%s", gone, out)
		}
	}
}

func TestImageFixes(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p><img src="a.png"><img src="b.png" alt="b" style="display:inline;"></p>`))
	if !strings.Contains(out, `style="display:block;margin:0 auto;"`) {
		t.Errorf("block display not prepended:\n%s", out)
	}
	if !strings.Contains(out, `alt=""`) {
		t.Errorf("missing alt not defaulted:\n%s", out)
	}
	// Existing display declaration wins.
	if !strings.Contains(out, `style="display:inline;"`) {
		t.Errorf("existing display overwritten:\n%s", out)
	}
}

func TestDisallowedElementsRemoved(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p>keep</p><script>alert(1)</script><iframe src="x"></iframe>`))
	if strings.Contains(out, "<script") || strings.Contains(out, "<iframe") {
		t.Errorf("script/iframe survived:\n%s", out)
	}
	if !strings.Contains(out, "<p>keep</p>") {
		t.Errorf("content around removed elements lost:\n%s", out)
	}
}

func TestZeroTopPaddingMarker(t *testing.T) {
	cases := []struct {
		name string
		td   string
		want bool
	}{
		{"padding-top zero", `<td class="table-box-mobile" style="padding-top: 0;">x</td>`, true},
		{"padding-top zero px", `<td class="table-box-mobile" style="padding-top: 0px;">x</td>`, true},
		{"shorthand zero", `<td class="table-box-mobile" style="padding: 0px 40px;">x</td>`, true},
		{"nonzero padding", `<td class="table-box-mobile" style="padding-top: 10px;">x</td>`, false},
		{"not a mobile cell", `<td style="padding-top: 0;">x</td>`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := ApplyEmailFixes(wrapDoc(`<table><tbody><tr>` + c.td + `</tr></tbody></table>`))
			if got := strings.Contains(out, "no-top-pad"); got != c.want {
				t.Errorf("no-top-pad added=%v, want %v:\n%s", got, c.want, out)
			}
		})
	}
}

func TestAnchorFix(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p style="font-size:14px">see <a href="x">text</a></p>`))

	if !strings.Contains(out, `<a style="color:#000000;text-decoration:underline;" href="x">`) {
		t.Errorf("anchor styles not added:\n%s", out)
	}
	// Font size picked up from the nearest preceding declaration.
	if !strings.Contains(out, `<span style="font-size:14px;color:#000000;text-decoration:underline;">text</span>`) {
		t.Errorf("content span not built from enclosing font size:\n%s", out)
	}

	if twice := ApplyEmailFixes(out); twice != out {
		t.Errorf("anchor fix is not idempotent")
	}
}

func TestAnchorFixDefaultFontSize(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p>see <a href="x">text</a></p>`))
	if !strings.Contains(out, "font-size:16px") {
		t.Errorf("default font size missing:\n%s", out)
	}
}

func TestAnchorFixKeepsOwnStyles(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p><a href="x" style="color:#054f8b;font-size:18px;">go</a></p>`))
	// Existing color survives, only text-decoration is added.
	if !strings.Contains(out, `style="text-decoration:underline;color:#054f8b;font-size:18px;"`) {
		t.Errorf("anchor's own styles not preserved:\n%s", out)
	}
	if !strings.Contains(out, `<span style="font-size:18px;color:#054f8b;text-decoration:underline;">go</span>`) {
		t.Errorf("span does not inherit the anchor's declarations:\n%s", out)
	}
}

func TestAnchorWithoutHrefUntouched(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p><a name="anchor">here</a></p>`))
	if strings.Contains(out, "text-decoration:underline") {
		t.Errorf("anchor without href must not be styled:\n%s", out)
	}
}

func TestInjectedHeights(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(
		`<table style="height:1886.73px"><tbody>` +
			`<tr style="height:81.23px"><td style="height:120px">a</td></tr>` +
			`<tr><td style="height:450px">b</td></tr>` +
			`</tbody></table>`))

	if strings.Contains(out, "1886.73px") || strings.Contains(out, "81.23px") || strings.Contains(out, "height:450px") {
		t.Errorf("injected heights survived:\n%s", out)
	}
	if !strings.Contains(out, "height:auto") {
		t.Errorf("height:auto replacement missing:\n%s", out)
	}
	if !strings.Contains(out, "height:120px") {
		t.Errorf("small intentional height must stay:\n%s", out)
	}
}

func TestGmailCSSInjection(t *testing.T) {
	out := ApplyEmailFixes(wrapDoc(`<p>x</p>`))
	if !strings.Contains(out, `<body id="body"`) {
		t.Errorf("body id not added:\n%s", out)
	}
	if !strings.Contains(out, "u + #body .tablebox a") {
		t.Errorf("client-specific CSS block missing:\n%s", out)
	}
	if strings.Count(out, gmailCSSMarker) != 1 {
		t.Errorf("CSS block injected more than once")
	}
}

func TestGmailCSSKeepsExistingBodyID(t *testing.T) {
	src := `<!DOCTYPE html><html><head><style>.a{}</style></head><body id="custom"><p>x</p></body></html>`
	out := ApplyEmailFixes(src)
	if !strings.Contains(out, `<body id="custom">`) {
		t.Errorf("existing body id replaced:\n%s", out)
	}
	if strings.Contains(out, `id="body"`) {
		t.Errorf("second id attribute added:\n%s", out)
	}
}

func TestApplyEmailFixesNeverFails(t *testing.T) {
	// Truncated and odd inputs pass through the pipeline without panicking.
	for _, src := range []string{"", "<p>unclosed", "just text", "<table><td>loose"} {
		_ = ApplyEmailFixes(src)
	}
}
