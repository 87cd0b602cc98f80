package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaanicare/vaanicare/internal/models"
)

const resultsPage = `<html><body>
<div class="result">
  <h2 class="result__title">
    <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.myscheme.gov.in%2Fschemes%2Fpmkisan">PM-KISAN Samman Nidhi</a>
  </h2>
  <a class="result__snippet">Income support for farmer families.</a>
</div>
<div class="result">
  <h2 class="result__title">
    <a class="result__a" href="https://kerala.gov.in/farmer-welfare">Kerala Farmer Welfare Fund Board</a>
  </h2>
  <a class="result__snippet">Pension and assistance for farmers in Kerala.</a>
</div>
</body></html>`

func newTestServer(t *testing.T, page string) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestFindLawyersParsesResults(t *testing.T) {
	srv, queries := newTestServer(t, resultsPage)
	client := NewClient(WithBaseURL(srv.URL + "/"))

	results, err := client.FindLawyers(context.Background(), "property dispute", "Ernakulam")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "PM-KISAN Samman Nidhi", results[0].Title)
	assert.Equal(t, "https://www.myscheme.gov.in/schemes/pmkisan", results[0].URL, "redirect link must be unwrapped")
	assert.Equal(t, "Income support for farmer families.", results[0].Snippet)
	assert.Equal(t, "https://kerala.gov.in/farmer-welfare", results[1].URL)

	require.Len(t, *queries, 1)
	assert.Contains(t, (*queries)[0], "property dispute")
	assert.Contains(t, (*queries)[0], "Ernakulam")
	assert.Equal(t, (*queries)[0], results[0].SourceQuery)
}

func TestFindSchemesRunsProfileQueries(t *testing.T) {
	srv, queries := newTestServer(t, resultsPage)
	client := NewClient(WithBaseURL(srv.URL + "/"))

	results, err := client.FindSchemes(context.Background(), models.SchemeProfile{
		Age:           "65",
		Gender:        "Female",
		State:         "Kerala",
		IncomeBracket: "Below 1 lakh",
		Occupation:    "farmer",
		Category:      "OBC",
	})
	require.NoError(t, err)

	require.Len(t, *queries, 3, "occupation, category, and gender queries")
	assert.Contains(t, (*queries)[0], "farmer")
	assert.Contains(t, (*queries)[1], "OBC")
	assert.Contains(t, (*queries)[2], "Female")

	// The same page is served for each query; URLs are deduplicated.
	assert.Len(t, results, 2)
	assert.Equal(t, (*queries)[0], results[0].SourceQuery)
}

func TestFindSchemesGeneralCategorySkipsCategoryQuery(t *testing.T) {
	srv, queries := newTestServer(t, resultsPage)
	client := NewClient(WithBaseURL(srv.URL + "/"))

	_, err := client.FindSchemes(context.Background(), models.SchemeProfile{
		State:      "Kerala",
		Gender:     "Male",
		Occupation: "fisherman",
		Category:   "General",
	})
	require.NoError(t, err)

	for _, q := range *queries {
		assert.NotContains(t, strings.ToLower(q), "general category")
	}
}

func TestFindSchemesMinimalProfileFallbackQuery(t *testing.T) {
	srv, queries := newTestServer(t, resultsPage)
	client := NewClient(WithBaseURL(srv.URL + "/"))

	_, err := client.FindSchemes(context.Background(), models.SchemeProfile{State: "Kerala"})
	require.NoError(t, err)

	require.Len(t, *queries, 1)
	assert.Contains(t, (*queries)[0], "government welfare schemes Kerala")
}

func TestFindLawyersServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(WithBaseURL(srv.URL + "/"))

	_, err := client.FindLawyers(context.Background(), "tenant issue", "Kochi")
	require.Error(t, err)
}

func TestFindSchemesToleratesFailedQueries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(WithBaseURL(srv.URL + "/"))

	results, err := client.FindSchemes(context.Background(), models.SchemeProfile{State: "Kerala"})
	require.NoError(t, err, "individual query failures are logged, not fatal")
	assert.Empty(t, results)
}

func TestParseResultsEmptyPage(t *testing.T) {
	results, err := parseResults(strings.NewReader("<html><body><p>No results.</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, results)
}
