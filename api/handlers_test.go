package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"go.uber.org/zap"

	"geopin/extract"
	"geopin/geo"
	"geopin/geocode"
	"geopin/storage"
)

type testEnv struct {
	handlers *Handlers
	server   *httptest.Server
	store    *storage.GormStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.Open(":memory:", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":{"road":"Main Road","city":"Johannesburg","country":"South Africa"}}`))
	}))
	t.Cleanup(geocoder.Close)

	h := &Handlers{
		Store:          store,
		Blobs:          blobs,
		Extractor:      extract.NewWithStrategies(zap.NewNop()),
		Resolver:       geocode.NewResolver(geocoder.URL, "geopin-test/1.0", geocode.NewMemoryCache(), zap.NewNop()),
		Hint:           geo.SouthernAfrica,
		SecretKey:      "test-secret",
		MaxUploadBytes: 50 * 1024 * 1024,
		Log:            zap.NewNop(),
	}

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	return &testEnv{handlers: h, server: srv, store: store}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	return resp, decodeBody(t, resp)
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return out
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "secret123"}
	resp, _ := e.postJSON(t, "/api/auth/register", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp, body := e.postJSON(t, "/api/auth/login", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

// multipartUpload builds a media upload request body.
func multipartUpload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)

	for k, v := range fields {
		w.WriteField(k, v)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postJSON(t, "/api/auth/register", map[string]string{"email": "", "password": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty credentials status = %d", resp.StatusCode)
	}

	resp, _ = env.postJSON(t, "/api/auth/register", map[string]string{"email": "a@example.com", "password": "short"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short password status = %d", resp.StatusCode)
	}

	creds := map[string]string{"email": "a@example.com", "password": "secret123"}
	resp, _ = env.postJSON(t, "/api/auth/register", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp, body := env.postJSON(t, "/api/auth/register", creds)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", resp.StatusCode)
	}
	if body["error"] != "Email already exists" {
		t.Fatalf("duplicate register error = %q", body["error"])
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "a@example.com")

	resp, body := env.postJSON(t, "/api/auth/login", map[string]string{"email": "a@example.com", "password": "wrong-pass"})
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
		t.Fatalf("wrong password: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, _ = env.postJSON(t, "/api/auth/login", map[string]string{"email": "nobody@example.com", "password": "secret123"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d", resp.StatusCode)
	}
}

func TestVerifyAndLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	resp, body := env.do(t, http.MethodGet, "/api/auth/verify", token, nil, "")
	if resp.StatusCode != http.StatusOK || body["valid"] != true {
		t.Fatalf("verify: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/auth/verify", "", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("verify without token status = %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/auth/verify", "garbage.token.here", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("verify with garbage token status = %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", token, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	// The token is signed and unexpired but its session row is gone.
	resp, _ = env.do(t, http.MethodGet, "/api/auth/verify", token, nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("verify after logout status = %d", resp.StatusCode)
	}
}

func TestUploadWithManualCoordinates(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	body, ct := multipartUpload(t, "site.jpg", "image/jpeg", []byte("fake image"), map[string]string{
		"category":  "solar",
		"latitude":  "-26.106358",
		"longitude": "28.172825",
	})
	resp, out := env.do(t, http.MethodPost, "/api/media/upload", token, body, ct)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, body = %v", resp.StatusCode, out)
	}
	if out["source"] != "manual" {
		t.Fatalf("source = %v, want manual", out["source"])
	}
	loc, _ := out["location"].(map[string]any)
	if loc["latitude"] != -26.106358 || loc["longitude"] != 28.172825 {
		t.Fatalf("location = %v", loc)
	}

	resp, out = env.do(t, http.MethodGet, "/api/media", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	media, _ := out["media"].([]any)
	if len(media) != 1 {
		t.Fatalf("listed %d records, want 1", len(media))
	}
}

func TestUploadRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartUpload(t, "site.jpg", "image/jpeg", []byte("x"), map[string]string{"category": "solar"})
	resp, _ := env.do(t, http.MethodPost, "/api/media/upload", "", body, ct)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated upload status = %d", resp.StatusCode)
	}
}

func TestUploadCoordinateErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	tests := []struct {
		name        string
		filename    string
		contentType string
		fields      map[string]string
		wantError   string
	}{
		{
			name:        "video without coordinates",
			filename:    "clip.mp4",
			contentType: "video/mp4",
			fields:      map[string]string{"category": "other"},
			wantError:   "Videos do not contain GPS data. Please provide latitude and longitude.",
		},
		{
			name:        "image with no extractable coordinates",
			filename:    "holiday.jpg",
			contentType: "image/jpeg",
			fields:      map[string]string{"category": "other"},
			wantError:   "No GPS data found in image. Please provide latitude and longitude.",
		},
		{
			name:        "unsupported type",
			filename:    "doc.pdf",
			contentType: "application/pdf",
			fields:      map[string]string{"category": "other"},
			wantError:   "Unsupported file type. Only images and videos are allowed.",
		},
		{
			name:        "missing category",
			filename:    "site.jpg",
			contentType: "image/jpeg",
			fields:      map[string]string{"latitude": "-26.1", "longitude": "28.2"},
			wantError:   "Category required",
		},
		{
			name:        "out of bounds manual coordinates",
			filename:    "site.jpg",
			contentType: "image/jpeg",
			fields:      map[string]string{"category": "solar", "latitude": "95", "longitude": "28.2"},
		},
		{
			name:        "non-numeric manual coordinates",
			filename:    "site.jpg",
			contentType: "image/jpeg",
			fields:      map[string]string{"category": "solar", "latitude": "abc", "longitude": "28.2"},
			wantError:   "Latitude and longitude must be numeric",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartUpload(t, tt.filename, tt.contentType, []byte("payload"), tt.fields)
			resp, out := env.do(t, http.MethodPost, "/api/media/upload", token, body, ct)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %v", resp.StatusCode, out)
			}
			if tt.wantError != "" && out["error"] != tt.wantError {
				t.Fatalf("error = %q, want %q", out["error"], tt.wantError)
			}
		})
	}
}

func TestLocationsAggregatesAndResolves(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	upload := func(lat, lng, category string) {
		body, ct := multipartUpload(t, "site.jpg", "image/jpeg", []byte("fake"), map[string]string{
			"category": category, "latitude": lat, "longitude": lng,
		})
		resp, out := env.do(t, http.MethodPost, "/api/media/upload", token, body, ct)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("upload status = %d, body = %v", resp.StatusCode, out)
		}
	}

	upload("-26.1063", "28.1728", "solar")
	upload("-26.10634", "28.17284", "solar")
	upload("13.3235", "75.7720", "building")

	resp, out := env.do(t, http.MethodGet, "/api/locations", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("locations status = %d", resp.StatusCode)
	}
	locations, _ := out["locations"].([]any)
	if len(locations) != 2 {
		t.Fatalf("got %d markers, want 2: %v", len(locations), locations)
	}

	first, _ := locations[0].(map[string]any)
	if first["media_count"] != float64(2) {
		t.Fatalf("first marker = %v, want the two-record bucket first", first)
	}
	if first["address"] != "Main Road, Johannesburg, South Africa" {
		t.Fatalf("address = %q", first["address"])
	}

	resp, out = env.do(t, http.MethodGet, "/api/locations?category=building", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("filtered locations status = %d", resp.StatusCode)
	}
	locations, _ = out["locations"].([]any)
	if len(locations) != 1 {
		t.Fatalf("filtered markers = %v, want 1", locations)
	}
}

func TestMediaByLocation(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	body, ct := multipartUpload(t, "site.jpg", "image/jpeg", []byte("fake"), map[string]string{
		"category": "solar", "latitude": "-26.106358", "longitude": "28.172825",
	})
	resp, _ := env.do(t, http.MethodPost, "/api/media/upload", token, body, ct)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	resp, out := env.do(t, http.MethodGet, "/api/media/location?lat=-26.1064&lng=28.1728", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("by-location status = %d", resp.StatusCode)
	}
	media, _ := out["media"].([]any)
	if len(media) != 1 {
		t.Fatalf("by-location returned %d records, want 1", len(media))
	}

	resp, out = env.do(t, http.MethodGet, "/api/media/location?lat=-26.1064", "", nil, "")
	if resp.StatusCode != http.StatusBadRequest || out["error"] != "Latitude and longitude required" {
		t.Fatalf("missing lng: status = %d, body = %v", resp.StatusCode, out)
	}
}

func TestListMediaInBounds(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	upload := func(lat, lng string) {
		body, ct := multipartUpload(t, "site.jpg", "image/jpeg", []byte("fake"), map[string]string{
			"category": "solar", "latitude": lat, "longitude": lng,
		})
		resp, out := env.do(t, http.MethodPost, "/api/media/upload", token, body, ct)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("upload status = %d, body = %v", resp.StatusCode, out)
		}
	}
	upload("-26.106358", "28.172825")
	upload("13.323528", "75.771964")

	resp, out := env.do(t, http.MethodGet, "/api/media?minLat=-27&maxLat=-26&minLng=28&maxLng=29", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bounds query status = %d", resp.StatusCode)
	}
	if media, _ := out["media"].([]any); len(media) != 1 {
		t.Fatalf("bounds query returned %d records, want 1", len(media))
	}

	resp, out = env.do(t, http.MethodGet, "/api/media?minLat=low&maxLat=-26&minLng=28&maxLng=29", "", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed bounds status = %d, body = %v", resp.StatusCode, out)
	}
}

func TestMediaFileStreaming(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	payload := []byte("raw image payload")
	body, ct := multipartUpload(t, "site.jpg", "image/jpeg", payload, map[string]string{
		"category": "solar", "latitude": "-26.1", "longitude": "28.2",
	})
	resp, out := env.do(t, http.MethodPost, "/api/media/upload", token, body, ct)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	id := out["media_id"].(float64)

	fileResp, err := http.Get(fmt.Sprintf("%s/api/media/%d/file", env.server.URL, int(id)))
	if err != nil {
		t.Fatal(err)
	}
	defer fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK {
		t.Fatalf("file status = %d", fileResp.StatusCode)
	}
	if got := fileResp.Header.Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("Content-Type = %q", got)
	}
	data, _ := io.ReadAll(fileResp.Body)
	if !bytes.Equal(data, payload) {
		t.Fatalf("streamed %d bytes, want original payload", len(data))
	}

	missing, err := http.Get(env.server.URL + "/api/media/9999/file")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing file status = %d", missing.StatusCode)
	}
}

func TestDeleteMediaOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerAndLogin(t, "owner@example.com")
	other := env.registerAndLogin(t, "other@example.com")

	body, ct := multipartUpload(t, "site.jpg", "image/jpeg", []byte("fake"), map[string]string{
		"category": "solar", "latitude": "-26.1", "longitude": "28.2",
	})
	resp, out := env.do(t, http.MethodPost, "/api/media/upload", owner, body, ct)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	path := fmt.Sprintf("/api/media/%d", int(out["media_id"].(float64)))

	resp, out = env.do(t, http.MethodDelete, path, other, nil, "")
	if resp.StatusCode != http.StatusNotFound || out["error"] != "Media not found or unauthorized" {
		t.Fatalf("non-owner delete: status = %d, body = %v", resp.StatusCode, out)
	}

	resp, _ = env.do(t, http.MethodDelete, path, owner, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner delete status = %d", resp.StatusCode)
	}

	resp, out = env.do(t, http.MethodGet, "/api/media", "", nil, "")
	if media, _ := out["media"].([]any); len(media) != 0 {
		t.Fatalf("record survived deletion: %v", media)
	}
}

func TestParseCoordinatesEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, out := env.postJSON(t, "/api/coordinates/parse", map[string]string{"text": "-26.106358, 28.172825"})
	if resp.StatusCode != http.StatusOK || out["found"] != true {
		t.Fatalf("parse: status = %d, body = %v", resp.StatusCode, out)
	}
	if out["latitude"] != -26.106358 || out["longitude"] != 28.172825 {
		t.Fatalf("parsed pair = %v", out)
	}
	if out["region_guess"] != false {
		t.Fatalf("region_guess = %v, want false", out["region_guess"])
	}

	// Unsigned pair inside the hint box gets the southern-hemisphere guess.
	resp, out = env.postJSON(t, "/api/coordinates/parse", map[string]string{"text": "26.106358, 28.172825"})
	if resp.StatusCode != http.StatusOK || out["found"] != true {
		t.Fatalf("hinted parse: status = %d, body = %v", resp.StatusCode, out)
	}
	if out["latitude"] != -26.106358 || out["region_guess"] != true {
		t.Fatalf("hinted pair = %v", out)
	}

	// An explicit northern reference inside the hint box is kept as stated.
	resp, out = env.postJSON(t, "/api/coordinates/parse", map[string]string{"text": `26°6'22.9"N 28°10'22.2"E`})
	if resp.StatusCode != http.StatusOK || out["found"] != true {
		t.Fatalf("explicit parse: status = %d, body = %v", resp.StatusCode, out)
	}
	if lat, _ := out["latitude"].(float64); math.Abs(lat-26.106361) > 1e-6 {
		t.Fatalf("explicit latitude = %v, want 26.106361", out["latitude"])
	}
	if out["region_guess"] != false {
		t.Fatalf("explicit region_guess = %v, want false", out["region_guess"])
	}

	resp, out = env.postJSON(t, "/api/coordinates/parse", map[string]string{"text": "not a coordinate at all"})
	if resp.StatusCode != http.StatusOK || out["found"] != false {
		t.Fatalf("unparseable: status = %d, body = %v", resp.StatusCode, out)
	}

	resp, _ = env.postJSON(t, "/api/coordinates/parse", map[string]string{"text": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty text status = %d", resp.StatusCode)
	}
}

func TestExportScopedToUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerAndLogin(t, "alice@example.com")
	bob := env.registerAndLogin(t, "bob@example.com")

	body, ct := multipartUpload(t, "site.jpg", "image/jpeg", []byte("fake"), map[string]string{
		"category": "solar", "latitude": "-26.1", "longitude": "28.2",
	})
	resp, _ := env.do(t, http.MethodPost, "/api/media/upload", alice, body, ct)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}

	resp, out := env.do(t, http.MethodGet, "/api/export", alice, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if rows, _ := out["data"].([]any); len(rows) != 1 {
		t.Fatalf("alice export = %v, want 1 row", out["data"])
	}

	resp, out = env.do(t, http.MethodGet, "/api/export", bob, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if rows, _ := out["data"].([]any); len(rows) != 0 {
		t.Fatalf("bob export = %v, want empty", out["data"])
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	env := newTestEnv(t)
	resp, out := env.do(t, http.MethodGet, "/api/nope", "", nil, "")
	if resp.StatusCode != http.StatusNotFound || out["error"] != "API endpoint not found" {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, out)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, out := env.do(t, http.MethodGet, "/health", "", nil, "")
	if resp.StatusCode != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("health: status = %d, body = %v", resp.StatusCode, out)
	}
}

func TestTokenAcceptedAsQueryParameter(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "a@example.com")

	resp, body := env.do(t, http.MethodGet, "/api/auth/verify?token="+token, "", nil, "")
	if resp.StatusCode != http.StatusOK || body["valid"] != true {
		t.Fatalf("query token verify: status = %d, body = %v", resp.StatusCode, body)
	}
}
