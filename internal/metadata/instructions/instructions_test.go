package instructions

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Options{
		LegoBaseURL:              server.URL,
		BrickInstructionsBaseURL: server.URL,
		RPS:                      1000,
		Burst:                    100,
	}, nil)
	t.Cleanup(client.Close)

	return client, server
}

const legoPageWithInstructions = `<!doctype html>
<html><body>
<main>
  <h2 data-test="select-instruction-heading">Select your building instructions</h2>
  <a href="/cdn/6217542.pdf">Download</a>
</main>
</body></html>`

const legoPageWithout = `<!doctype html>
<html><body><main><h2>We couldn't find that set</h2></main></body></html>`

func TestCheckAvailability(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       bool
		wantStatus int
	}{
		{"heading present", http.StatusOK, legoPageWithInstructions, true, http.StatusOK},
		{"heading missing", http.StatusOK, legoPageWithout, false, http.StatusOK},
		{"not found page", http.StatusNotFound, legoPageWithInstructions, false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/en-us/service/building-instructions/75192", r.URL.Path)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			got := client.CheckAvailability(context.Background(), "75192")
			assert.Equal(t, tt.want, got.HasInstructions)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, server.URL+"/en-us/service/building-instructions/75192", got.URL)
			assert.Empty(t, got.Error)
		})
	}
}

func TestCheckAvailability_FollowsRedirects(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/en-us/service/building-instructions/75192" {
			http.Redirect(w, r, "/en-us/service/building-instructions/75192-1", http.StatusFound)
			return
		}
		fmt.Fprint(w, legoPageWithInstructions)
	})

	got := client.CheckAvailability(context.Background(), "75192")
	assert.True(t, got.HasInstructions)
}

func TestCheckAvailability_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := New(Options{LegoBaseURL: base, RPS: 1000, Burst: 100}, nil)
	defer client.Close()

	got := client.CheckAvailability(context.Background(), "75192")
	assert.False(t, got.HasInstructions)
	assert.NotEmpty(t, got.Error)
	assert.Zero(t, got.StatusCode)
}

const brickPage = `<!doctype html>
<html><body>
<div class="header"><img src="/images/logo.png"></div>
<div id="instructionsContainer">
  <img src="/thumbnails/75192/001.jpg">
  <img src="thumbnails/75192/002.jpg">
  <img src="https://cdn.example.com/thumbnails/75192/003.jpg">
  <img alt="no source">
</div>
</body></html>`

func TestFetchImages(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lego_instructions/set/75192", r.URL.Path)
		fmt.Fprint(w, brickPage)
	})

	got := client.FetchImages(context.Background(), "75192")
	require.True(t, got.Success, got.Error)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, []string{
		server.URL + "/instructions/75192/001.jpg",
		server.URL + "/instructions/75192/002.jpg",
		"https://cdn.example.com/instructions/75192/003.jpg",
	}, got.Images)
	assert.Equal(t, server.URL+"/lego_instructions/set/75192", got.URL)
}

func TestFetchImages_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"missing page", http.StatusNotFound, "", "page not found (status: 404)"},
		{"no container", http.StatusOK, `<html><body><img src="/a.jpg"></body></html>`, "instructions container not found"},
		{"empty container", http.StatusOK, `<html><body><div id="instructionsContainer"></div></body></html>`, "no instruction images found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			got := client.FetchImages(context.Background(), "1-1")
			assert.False(t, got.Success)
			assert.Equal(t, tt.wantErr, got.Error)
			assert.Empty(t, got.Images)
			assert.Zero(t, got.Count)
		})
	}
}

func TestImageURL(t *testing.T) {
	client := New(Options{BrickInstructionsBaseURL: "https://lego.brickinstructions.com/"}, nil)
	defer client.Close()

	assert.Equal(t, "https://lego.brickinstructions.com/instructions/1/a.jpg", client.imageURL("/thumbnails/1/a.jpg"))
	assert.Equal(t, "https://lego.brickinstructions.com/instructions/1/a.jpg", client.imageURL("thumbnails/1/a.jpg"))
	assert.Equal(t, "http://x.test/b.jpg", client.imageURL("http://x.test/b.jpg"))
}
