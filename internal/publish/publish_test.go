package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"postpilot/internal/config"
	"postpilot/internal/content"
	"postpilot/internal/platform"
)

func sampleItem() content.Item {
	return content.Item{
		ID:           "c1",
		Title:        "Scheduling posts with Go",
		Content:      "A short write-up about cron, caps and retries.",
		Excerpt:      "Cron, caps and retries.",
		Tags:         []string{"Go", "Automation", "cron", "devops", "scheduling", "extra"},
		Category:     content.CategoryBlog,
		MediaURLs:    []string{"https://cdn.example/cover.png"},
		CanonicalURL: "https://blog.example/scheduling",
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return body
}

func TestSetUnknownPlatform(t *testing.T) {
	res := NewSet().Publish(context.Background(), platform.Twitter, sampleItem(), nil)
	if res.Success || res.Error != "no adapter" {
		t.Fatalf("expected no adapter failure, got %+v", res)
	}
}

func TestSetDispatchesToAdapter(t *testing.T) {
	set := NewSet()
	var got content.Item
	set.Register(platform.LinkedIn, AdapterFunc(func(_ context.Context, item content.Item, form FormData) Result {
		got = item
		return Result{Success: true, URL: form.Get("url", "")}
	}))
	res := set.Publish(context.Background(), platform.LinkedIn, sampleItem(), FormData{"url": "https://x"})
	if !res.Success || res.URL != "https://x" || got.ID != "c1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if ids := set.Platforms(); len(ids) != 1 || ids[0] != platform.LinkedIn {
		t.Fatalf("unexpected platforms %v", ids)
	}
}

func TestDevtoPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/articles" || r.Header.Get("api-key") != "dev-key" {
			t.Errorf("unexpected request %s key=%q", r.URL.Path, r.Header.Get("api-key"))
		}
		article := decodeBody(t, r)["article"].(map[string]any)
		if tags := article["tags"].([]any); len(tags) != 4 {
			t.Errorf("expected 4 tags, got %v", tags)
		}
		if article["canonical_url"] != "https://blog.example/scheduling" {
			t.Errorf("unexpected canonical url %v", article["canonical_url"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"url":"https://dev.to/me/scheduling"}`))
	}))
	defer srv.Close()

	res := (&Devto{Client: srv.Client(), BaseURL: srv.URL, APIKey: "dev-key"}).Publish(context.Background(), sampleItem(), nil)
	if !res.Success || res.URL != "https://dev.to/me/scheduling" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDevtoReportsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	res := (&Devto{Client: srv.Client(), BaseURL: srv.URL, APIKey: "bad"}).Publish(context.Background(), sampleItem(), nil)
	if res.Success || !strings.Contains(res.Error, "401") {
		t.Fatalf("expected 401 failure, got %+v", res)
	}
}

func TestMissingCredentialsFail(t *testing.T) {
	item := sampleItem()
	ctx := context.Background()
	adapters := map[string]Adapter{
		"hashnode":  &Hashnode{},
		"devto":     &Devto{},
		"twitter":   &Twitter{},
		"linkedin":  &LinkedIn{AccessToken: "x"},
		"instagram": &Instagram{AccessToken: "x"},
		"youtube":   &YouTube{},
	}
	for name, adapter := range adapters {
		if res := adapter.Publish(ctx, item, nil); res.Success || res.Error == "" {
			t.Fatalf("%s: expected credential failure, got %+v", name, res)
		}
	}
}

func TestHashnodePublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "hn-token" {
			t.Errorf("unexpected auth %q", r.Header.Get("Authorization"))
		}
		body := decodeBody(t, r)
		if !strings.Contains(body["query"].(string), "publishPost") {
			t.Errorf("expected publishPost mutation")
		}
		input := body["variables"].(map[string]any)["input"].(map[string]any)
		if input["publicationId"] != "pub-1" || len(input["tags"].([]any)) != 5 {
			t.Errorf("unexpected input %v", input)
		}
		_, _ = w.Write([]byte(`{"data":{"publishPost":{"post":{"id":"p1","url":"https://blog.hashnode.dev/p1"}}}}`))
	}))
	defer srv.Close()

	res := (&Hashnode{Client: srv.Client(), Endpoint: srv.URL, Token: "hn-token", PublicationID: "pub-1"}).Publish(context.Background(), sampleItem(), nil)
	if !res.Success || res.URL != "https://blog.hashnode.dev/p1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHashnodeGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Publication not found"}]}`))
	}))
	defer srv.Close()

	res := (&Hashnode{Client: srv.Client(), Endpoint: srv.URL, Token: "t", PublicationID: "p"}).Publish(context.Background(), sampleItem(), nil)
	if res.Success || !strings.Contains(res.Error, "Publication not found") {
		t.Fatalf("expected graphql error, got %+v", res)
	}
}

func TestTwitterPublishRespectsLimit(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" || r.Header.Get("Authorization") != "Bearer tw" {
			t.Errorf("unexpected request %s", r.URL.Path)
		}
		text, _ = decodeBody(t, r)["text"].(string)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"123","text":"..."}}`))
	}))
	defer srv.Close()

	item := sampleItem()
	item.Content = strings.Repeat("long tweet text ", 40)
	res := (&Twitter{Client: srv.Client(), BaseURL: srv.URL, BearerToken: "tw"}).Publish(context.Background(), item, nil)
	if !res.Success || res.URL != "https://x.com/i/web/status/123" {
		t.Fatalf("unexpected result %+v", res)
	}
	if n := utf8.RuneCountInString(text); n == 0 || n > 280 {
		t.Fatalf("tweet has %d runes", n)
	}
}

func TestLinkedInPublishUsesHeaderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["author"] != "urn:li:person:abc" || r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
			t.Errorf("unexpected request %v", body)
		}
		w.Header().Set("X-RestLi-Id", "urn:li:share:99")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	res := (&LinkedIn{Client: srv.Client(), BaseURL: srv.URL, AccessToken: "li", AuthorURN: "urn:li:person:abc"}).Publish(context.Background(), sampleItem(), nil)
	if !res.Success || res.URL != "https://www.linkedin.com/feed/update/urn:li:share:99" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestInstagramContainerFlow(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/acct/media":
			if r.URL.Query().Get("image_url") != "https://cdn.example/cover.png" {
				t.Errorf("expected image_url, got %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
		case "/acct/media_publish":
			if r.URL.Query().Get("creation_id") != "container-1" {
				t.Errorf("unexpected creation id %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"id":"media-1"}`))
		case "/media-1":
			_, _ = w.Write([]byte(`{"permalink":"https://instagram.com/p/xyz"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	res := (&Instagram{Client: srv.Client(), BaseURL: srv.URL, AccessToken: "ig", AccountID: "acct"}).Publish(context.Background(), sampleItem(), nil)
	if !res.Success || res.URL != "https://instagram.com/p/xyz" {
		t.Fatalf("unexpected result %+v (calls %v)", res, calls)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %v", calls)
	}
}

func TestInstagramWaitsForVideoContainer(t *testing.T) {
	var calls []string
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/acct/media":
			if r.URL.Query().Get("media_type") != "REELS" || r.URL.Query().Get("video_url") != "https://cdn.example/clip.mp4" {
				t.Errorf("unexpected video container request %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
		case "/container-1":
			if r.URL.Query().Get("fields") != "status_code" {
				t.Errorf("unexpected status query %s", r.URL.RawQuery)
			}
			polls++
			if polls < 3 {
				_, _ = w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status_code":"FINISHED"}`))
		case "/acct/media_publish":
			if polls < 3 {
				t.Errorf("media_publish called before the container finished")
			}
			_, _ = w.Write([]byte(`{"id":"media-1"}`))
		case "/media-1":
			_, _ = w.Write([]byte(`{"permalink":"https://instagram.com/reel/xyz"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	item := sampleItem()
	item.MediaURLs = []string{"https://cdn.example/clip.mp4"}
	adapter := &Instagram{Client: srv.Client(), BaseURL: srv.URL, AccessToken: "ig", AccountID: "acct", PollInterval: 5 * time.Millisecond}
	res := adapter.Publish(context.Background(), item, nil)
	if !res.Success || res.URL != "https://instagram.com/reel/xyz" {
		t.Fatalf("unexpected result %+v (calls %v)", res, calls)
	}
	if polls != 3 {
		t.Fatalf("expected 3 status polls, got %d", polls)
	}
}

func TestInstagramVideoContainerError(t *testing.T) {
	published := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acct/media":
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
		case "/container-1":
			_, _ = w.Write([]byte(`{"status_code":"ERROR"}`))
		case "/acct/media_publish":
			published = true
			_, _ = w.Write([]byte(`{"id":"media-1"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	item := sampleItem()
	item.MediaURLs = []string{"https://cdn.example/clip.mov"}
	res := (&Instagram{Client: srv.Client(), BaseURL: srv.URL, AccessToken: "ig", AccountID: "acct", PollInterval: time.Millisecond}).Publish(context.Background(), item, nil)
	if res.Success || !strings.Contains(res.Error, "status ERROR") {
		t.Fatalf("expected container error, got %+v", res)
	}
	if published {
		t.Fatal("media_publish must not run for a failed container")
	}
}

func TestInstagramContainerPollingHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acct/media":
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
		default:
			_, _ = w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	item := sampleItem()
	item.MediaURLs = []string{"https://cdn.example/clip.mp4"}
	res := (&Instagram{Client: srv.Client(), BaseURL: srv.URL, AccessToken: "ig", AccountID: "acct", PollInterval: 10 * time.Millisecond}).Publish(ctx, item, nil)
	if res.Success || !strings.Contains(res.Error, "deadline exceeded") {
		t.Fatalf("expected deadline failure, got %+v", res)
	}
}

func TestInstagramRequiresMedia(t *testing.T) {
	item := sampleItem()
	item.MediaURLs = nil
	res := (&Instagram{AccessToken: "ig", AccountID: "acct"}).Publish(context.Background(), item, nil)
	if res.Success || !strings.Contains(res.Error, "media") {
		t.Fatalf("expected media failure, got %+v", res)
	}
}

func TestYouTubeResumableUpload(t *testing.T) {
	var uploaded []byte
	var metadata map[string]any
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/video.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("fake-video-bytes"))
		case r.Method == http.MethodPost && r.URL.Path == "/upload/youtube/v3/videos":
			if r.URL.Query().Get("uploadType") != "resumable" || r.Header.Get("X-Upload-Content-Type") != "video/mp4" {
				t.Errorf("unexpected session request %s", r.URL.RawQuery)
			}
			metadata = decodeBody(t, r)
			w.Header().Set("Location", srv.URL+"/session/1")
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/session/1":
			uploaded, _ = io.ReadAll(r.Body)
			_, _ = w.Write([]byte(`{"id":"vid123"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	item := sampleItem()
	item.Category = content.CategoryReel
	item.MediaURLs = []string{srv.URL + "/video.mp4"}
	res := (&YouTube{Client: srv.Client(), BaseURL: srv.URL, AccessToken: "yt"}).Publish(context.Background(), item, FormData{"privacy_status": "unlisted"})
	if !res.Success || res.URL != "https://www.youtube.com/watch?v=vid123" {
		t.Fatalf("unexpected result %+v", res)
	}
	if string(uploaded) != "fake-video-bytes" {
		t.Fatalf("unexpected upload body %q", uploaded)
	}
	status := metadata["status"].(map[string]any)
	if status["privacyStatus"] != "unlisted" {
		t.Fatalf("expected form privacy status, got %v", status)
	}
}

func TestComposePost(t *testing.T) {
	item := content.Item{Title: "Title", Content: "Body", Tags: []string{"Go Lang"}, CanonicalURL: "https://x.example/a"}
	if got := composePost(item, 0, true); got != "Body\n\nhttps://x.example/a\n\n#golang" {
		t.Fatalf("unexpected post %q", got)
	}
	if got := composePost(item, 10, true); got != "Body" {
		t.Fatalf("expected suffixes dropped when they do not fit, got %q", got)
	}
	item.Content = ""
	if got := composePost(item, 0, false); got != "Title\n\nhttps://x.example/a" {
		t.Fatalf("expected title fallback, got %q", got)
	}
}

func TestFromConfigRegistersAllPlatforms(t *testing.T) {
	cfg := config.Default()
	cfg.Platforms["devTo"] = config.Platform{BaseURL: "http://devto.test", Form: map[string]string{"series": "weekly"}}
	set := FromConfig(&cfg, nil)
	if len(set.Platforms()) != len(platform.All()) {
		t.Fatalf("expected every platform registered, got %v", set.Platforms())
	}
	adapter, _ := set.Lookup(platform.DevTo)
	if adapter.(*Devto).BaseURL != "http://devto.test" {
		t.Fatalf("expected base url override")
	}
	if FormFor(&cfg, platform.DevTo).Get("series", "") != "weekly" {
		t.Fatal("expected form data from config")
	}
}
