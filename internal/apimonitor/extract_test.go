package apimonitor

import (
	"strings"
	"testing"
)

const samplePage = `<html><head><title>t</title><script>var x = 1;</script><style>p{}</style></head>
<body>
<header>Site header</header>
<nav><a href="/">Home</a></nav>
<main>
  <h1>List calls</h1>
  <p>Returns   a page of <code>call</code> objects.</p>
  <ul><li>limit</li><li>pagination_key</li></ul>
  <!-- build 42 -->
</main>
<aside>Related</aside>
<footer>Copyright</footer>
</body></html>`

func TestExtractSelector(t *testing.T) {
	got, err := Extract(strings.NewReader(samplePage), "main")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "List calls\nReturns a page of call objects.\nlimit\npagination_key"
	if got != want {
		t.Fatalf("Extract = %q, want %q", got, want)
	}
}

func TestExtractFallsBackToBody(t *testing.T) {
	for _, selector := range []string{"", "#missing"} {
		got, err := Extract(strings.NewReader(samplePage), selector)
		if err != nil {
			t.Fatalf("Extract(%q): %v", selector, err)
		}
		if !strings.Contains(got, "List calls") || !strings.Contains(got, "Related") {
			t.Fatalf("Extract(%q) = %q", selector, got)
		}
		for _, chrome := range []string{"Site header", "Home", "Copyright", "var x"} {
			if strings.Contains(got, chrome) {
				t.Fatalf("Extract(%q) kept %q", selector, chrome)
			}
		}
	}
}

func TestHashIsStable(t *testing.T) {
	a, _ := Extract(strings.NewReader(samplePage), "main")
	b, _ := Extract(strings.NewReader(strings.ReplaceAll(samplePage, "build 42", "build 43")), "main")
	if Hash(a) != Hash(b) {
		t.Fatalf("comment-only changes must not change the hash")
	}
	if Hash(a) == Hash(a+"x") || len(Hash(a)) != 64 {
		t.Fatalf("unexpected hash behaviour")
	}
}
