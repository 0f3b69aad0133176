package browser

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSiteHandler_ServesAppForRoutes(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(SiteHandler())
	t.Cleanup(srv.Close)

	for _, route := range []string{"/", "/popular", "/top-rated", "/trend/"} {
		resp, err := http.Get(srv.URL + route)
		if err != nil {
			t.Fatalf("GET %s: %v", route, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", route, resp.StatusCode)
		}
		if !strings.Contains(string(body), `id="react-paginate"`) {
			t.Fatalf("GET %s: fixture page not served", route)
		}
	}

	resp, err := http.Get(srv.URL + "/favicon.ico")
	if err != nil {
		t.Fatalf("GET favicon: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET favicon: status %d, want 404", resp.StatusCode)
	}
}

// The page objects' locators depend on these class names and attributes.
func TestFixtureSite_HasLocatorHooks(t *testing.T) {
	t.Parallel()
	page := string(siteHTML)
	for _, hook := range []string{
		"css-yk16xz-control",
		"css-1hwfws3",
		"css-1uccc91-singleValue",
		"css-12jo7m5",
		"css-yt9ioa-option",
		"rc-rate",
		"aria-posinset",
		"flex flex-col items-center",
		"<p>Type</p>",
		"<p>Genre</p>",
		`<a href="/top-rated">Top rated</a>`,
	} {
		if !strings.Contains(page, hook) {
			t.Errorf("fixture site missing %q", hook)
		}
	}
}
