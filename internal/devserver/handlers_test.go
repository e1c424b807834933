package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thena/internal/domain"
)

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	ts := httptest.NewServer(New(zerolog.Nop()).Mux())
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// login walks the full magic-link loop for a fresh user.
func login(t *testing.T, c *http.Client, base, email, pseudo string) {
	t.Helper()
	resp := postJSON(t, c, base+"/auth/magic-link", map[string]string{"email": email, "pseudo": pseudo})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[struct {
		OK      bool   `json:"ok"`
		DevLink string `json:"dev_link"`
	}](t, resp)
	require.True(t, out.OK)
	require.NotEmpty(t, out.DevLink)

	vr, err := c.Get(out.DevLink)
	require.NoError(t, err)
	vr.Body.Close()
	require.Equal(t, http.StatusOK, vr.StatusCode)
}

func TestMeBeforeAndAfterLogin(t *testing.T) {
	ts, c := newTestServer(t)

	resp, err := c.Get(ts.URL + "/me")
	require.NoError(t, err)
	me := decode[map[string]any](t, resp)
	assert.Nil(t, me["user"])

	login(t, c, ts.URL, "lea@example.org", "léa")

	resp, err = c.Get(ts.URL + "/me")
	require.NoError(t, err)
	me = decode[map[string]any](t, resp)
	require.NotNil(t, me["user"])
	assert.Equal(t, "léa", me["user"].(map[string]any)["pseudo"])
}

func TestMagicLinkValidation(t *testing.T) {
	ts, c := newTestServer(t)

	resp := postJSON(t, c, ts.URL+"/auth/magic-link", map[string]string{"email": "nope", "pseudo": "léa"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, c, ts.URL+"/auth/magic-link", map[string]string{"email": "lea@example.org", "pseudo": "l"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestVerifyBadToken(t *testing.T) {
	ts, c := newTestServer(t)
	resp, err := c.Get(ts.URL + "/auth/verify?token=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAutocompleteAndDetails(t *testing.T) {
	ts, c := newTestServer(t)

	resp, err := c.Get(ts.URL + "/api/google/autocomplete?q=zinc")
	require.NoError(t, err)
	sugs := decode[[]domain.Suggestion](t, resp)
	require.Len(t, sugs, 1)
	assert.Equal(t, "dev-zinc", sugs[0].PlaceID)

	resp, err = c.Get(ts.URL + "/api/google/place?place_id=dev-zinc")
	require.NoError(t, err)
	place := decode[map[string]any](t, resp)
	assert.Equal(t, "Le Zinc", place["name"])
	assert.NotEmpty(t, place["formatted_address"])
}

func TestCreateEstablishmentRequiresAuthAndIsIdempotent(t *testing.T) {
	ts, c := newTestServer(t)
	payload := map[string]any{"google_place_id": "dev-zinc", "name": "Le Zinc"}

	resp := postJSON(t, c, ts.URL+"/establishments", payload)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	login(t, c, ts.URL, "lea@example.org", "léa")

	resp = postJSON(t, c, ts.URL+"/establishments", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[domain.Establishment](t, resp)
	assert.NotZero(t, first.ID)

	resp = postJSON(t, c, ts.URL+"/establishments", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[domain.Establishment](t, resp)
	assert.Equal(t, first.ID, second.ID)
}

func TestReviewUpsertAndAggregates(t *testing.T) {
	ts, c := newTestServer(t)
	login(t, c, ts.URL, "lea@example.org", "léa")

	resp := postJSON(t, c, ts.URL+"/establishments", map[string]any{"google_place_id": "dev-zinc", "name": "Le Zinc"})
	est := decode[domain.Establishment](t, resp)

	score := 8.0
	resp = postJSON(t, c, ts.URL+"/reviews", domain.ReviewInput{
		EstablishmentID: est.ID, Score: &score, Comment: "Bonne équipe.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Second submission by the same user replaces, not appends.
	score = 6.0
	resp = postJSON(t, c, ts.URL+"/reviews", domain.ReviewInput{
		EstablishmentID: est.ID, Score: &score, Comment: "Finalement moyen.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := c.Get(ts.URL + "/establishments/by_google/dev-zinc")
	require.NoError(t, err)
	b := decode[domain.Bundle](t, resp)
	require.Len(t, b.Reviews, 1)
	assert.Equal(t, "Finalement moyen.", b.Reviews[0].Comment)
	assert.Equal(t, "léa", b.Reviews[0].AuthorName)
	require.NotNil(t, b.Avg)
	assert.Equal(t, 6.0, *b.Avg)
	assert.Equal(t, 1, b.CountScored)
	assert.Equal(t, 1, b.CountTotal)
}

func TestReviewValidation(t *testing.T) {
	ts, c := newTestServer(t)
	login(t, c, ts.URL, "lea@example.org", "léa")
	resp := postJSON(t, c, ts.URL+"/establishments", map[string]any{"google_place_id": "dev-zinc"})
	est := decode[domain.Establishment](t, resp)

	bad := []domain.ReviewInput{
		{EstablishmentID: est.ID, Comment: "   "},
		{EstablishmentID: est.ID, Comment: "ok", Contract: "CDI_PLUS"},
		{EstablishmentID: 999, Comment: "ok"},
	}
	over := 10.5
	bad = append(bad, domain.ReviewInput{EstablishmentID: est.ID, Comment: "ok", Score: &over})
	for i, in := range bad {
		resp := postJSON(t, c, ts.URL+"/reviews", in)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, fmt.Sprintf("case %d", i))
		resp.Body.Close()
	}
}

func TestDeleteReviewOwnership(t *testing.T) {
	ts, owner := newTestServer(t)
	login(t, owner, ts.URL, "lea@example.org", "léa")
	resp := postJSON(t, owner, ts.URL+"/establishments", map[string]any{"google_place_id": "dev-zinc"})
	est := decode[domain.Establishment](t, resp)
	resp = postJSON(t, owner, ts.URL+"/reviews", domain.ReviewInput{EstablishmentID: est.ID, Comment: "à supprimer"})
	rv := decode[domain.Review](t, resp)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &http.Client{Jar: jar}
	login(t, other, ts.URL, "max@example.org", "max")

	deleteURL := fmt.Sprintf("%s/reviews/%d", ts.URL, rv.ID)
	req, err := http.NewRequest(http.MethodDelete, deleteURL, nil)
	require.NoError(t, err)
	dr, err := other.Do(req)
	require.NoError(t, err)
	dr.Body.Close()
	assert.Equal(t, http.StatusForbidden, dr.StatusCode)

	// fresh request: the jar stamped the other user's cookie onto req
	req, err = http.NewRequest(http.MethodDelete, deleteURL, nil)
	require.NoError(t, err)
	dr, err = owner.Do(req)
	require.NoError(t, err)
	dr.Body.Close()
	assert.Equal(t, http.StatusNoContent, dr.StatusCode)

	resp, err = owner.Get(ts.URL + "/establishments/by_google/dev-zinc")
	require.NoError(t, err)
	b := decode[domain.Bundle](t, resp)
	assert.Empty(t, b.Reviews)
}
