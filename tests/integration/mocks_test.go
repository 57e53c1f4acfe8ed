//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// Publication is a post accepted by the fake Graph API.
type Publication struct {
	Channel  string
	Caption  string
	ImageURL string
}

// FakeGraph is an httptest Graph API serving the facebook page photo call
// and the instagram container flow.
type FakeGraph struct {
	server *httptest.Server

	mu            sync.Mutex
	published     []Publication
	failFacebook  bool
	failInstagram bool
	containers    map[string]Publication
	nextID        int
}

// NewFakeGraph starts a fake Graph API for pageID linked to igID.
func NewFakeGraph(pageID, igID string) *FakeGraph {
	g := &FakeGraph{containers: make(map[string]Publication)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+pageID+"/photos", g.pagePhoto)
	mux.HandleFunc("GET /"+pageID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"instagram_business_account": map[string]string{"id": igID},
			"id":                         pageID,
		})
	})
	mux.HandleFunc("POST /"+igID+"/media", g.createContainer)
	mux.HandleFunc("POST /"+igID+"/media_publish", g.publishContainer)

	g.server = httptest.NewServer(mux)
	return g
}

// URL returns the base URL of the fake API.
func (g *FakeGraph) URL() string {
	return g.server.URL
}

// Close stops the fake API.
func (g *FakeGraph) Close() {
	g.server.Close()
}

// SetFailures makes the next calls for a channel fail until reset.
func (g *FakeGraph) SetFailures(facebook, instagram bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failFacebook = facebook
	g.failInstagram = instagram
}

// Reset clears recorded publications and failures.
func (g *FakeGraph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.published = nil
	g.failFacebook = false
	g.failInstagram = false
}

// Published returns publications whose caption equals caption.
func (g *FakeGraph) Published(caption string) []Publication {
	g.mu.Lock()
	defer g.mu.Unlock()

	var result []Publication
	for _, p := range g.published {
		if p.Caption == caption {
			result = append(result, p)
		}
	}
	return result
}

func (g *FakeGraph) pagePhoto(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failFacebook {
		writeGraphError(w, http.StatusBadRequest, 368, "temporarily blocked")
		return
	}
	g.nextID++
	g.published = append(g.published, Publication{Channel: "facebook", Caption: body["caption"], ImageURL: body["url"]})
	writeJSON(w, http.StatusOK, map[string]string{"id": "photo", "post_id": "page-1_" + strconv.Itoa(g.nextID)})
}

func (g *FakeGraph) createContainer(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failInstagram {
		writeGraphError(w, http.StatusBadRequest, 9004, "media download failed")
		return
	}
	g.nextID++
	id := "container-" + strconv.Itoa(g.nextID)
	g.containers[id] = Publication{Channel: "instagram", Caption: body["caption"], ImageURL: body["image_url"]}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (g *FakeGraph) publishContainer(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	container, found := g.containers[body["creation_id"]]
	if !found {
		writeGraphError(w, http.StatusBadRequest, 100, "unknown creation id")
		return
	}
	delete(g.containers, body["creation_id"])
	g.nextID++
	g.published = append(g.published, container)
	writeJSON(w, http.StatusOK, map[string]string{"id": "media-" + strconv.Itoa(g.nextID)})
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeGraphError(w, http.StatusBadRequest, 100, "invalid body")
		return nil, false
	}
	if body["access_token"] == "" {
		writeGraphError(w, http.StatusUnauthorized, 190, "missing access token")
		return nil, false
	}
	return body, true
}

func writeGraphError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": message, "type": "OAuthException", "code": code},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
