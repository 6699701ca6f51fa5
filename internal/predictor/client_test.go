package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingObserver struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (r *recordingObserver) ObserveAttempt(attempt Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
}

func (r *recordingObserver) endpoints() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, a.Endpoint)
	}
	return out
}

func jsonBackend(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadEndpoint(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestPredictSendsJSONImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got Request
		switch {
		case r.Method != http.MethodPost || r.URL.Path != "/predict":
			_ = json.NewEncoder(w).Encode(Response{Error: "unexpected request " + r.Method + " " + r.URL.Path})
		case r.Header.Get("Content-Type") != "application/json" || r.Header.Get("Accept") != "application/json":
			_ = json.NewEncoder(w).Encode(Response{Error: "missing json headers"})
		case json.NewDecoder(r.Body).Decode(&got) != nil || got.Image != "aGVsbG8=":
			_ = json.NewEncoder(w).Encode(Response{Error: "unexpected payload"})
		default:
			_ = json.NewEncoder(w).Encode(Response{Success: true, Class: "eczema", Confidence: 0.7})
		}
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, zap.NewNop())
	resp, err := c.Predict(context.Background(), "aGVsbG8=")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if resp.Class != "eczema" {
		t.Fatalf("unexpected class: %s", resp.Class)
	}
}

func TestPredictFallsBackAfterTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	expected := Response{Success: true, Class: "acne", Confidence: 0.82, Message: "ok"}
	fast := jsonBackend(t, http.StatusOK, expected)

	observer := &recordingObserver{}
	c := NewClient([]string{slow.URL, fast.URL}, zap.NewNop(),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithObserver(observer),
	)

	resp, err := c.Predict(context.Background(), "img")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if *resp != expected {
		t.Fatalf("expected %+v, got %+v", expected, *resp)
	}
	if len(observer.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(observer.attempts))
	}
	if observer.attempts[0].Outcome != OutcomeTransportError {
		t.Fatalf("expected first attempt to be a transport error, got %s", observer.attempts[0].Outcome)
	}
}

func TestPredictStopsAtFirstSuccess(t *testing.T) {
	failing := jsonBackend(t, http.StatusInternalServerError, Response{Error: "overloaded"})
	ok := jsonBackend(t, http.StatusOK, Response{Success: true, Class: "psoriasis", Confidence: 0.6})
	unused := jsonBackend(t, http.StatusOK, Response{Success: true, Class: "acne", Confidence: 0.9})

	observer := &recordingObserver{}
	c := NewClient([]string{failing.URL, ok.URL, unused.URL}, zap.NewNop(), WithObserver(observer))

	resp, err := c.Predict(context.Background(), "img")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if resp.Class != "psoriasis" {
		t.Fatalf("expected response from second endpoint, got %q", resp.Class)
	}
	got := observer.endpoints()
	want := []string{failing.URL, ok.URL}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected attempts %v, got %v", want, got)
	}
}

func TestPredictAcceptsAny2xxStatus(t *testing.T) {
	expected := Response{Success: true, Class: "acne", Confidence: 0.82}
	for _, status := range []int{http.StatusCreated, http.StatusAccepted} {
		srv := jsonBackend(t, status, expected)
		unused := jsonBackend(t, http.StatusOK, Response{Success: true, Class: "eczema", Confidence: 0.9})

		observer := &recordingObserver{}
		c := NewClient([]string{srv.URL, unused.URL}, zap.NewNop(), WithObserver(observer))
		resp, err := c.Predict(context.Background(), "img")
		if err != nil {
			t.Fatalf("status %d: expected success, got error: %v", status, err)
		}
		if *resp != expected {
			t.Fatalf("status %d: expected %+v, got %+v", status, expected, *resp)
		}
		if len(observer.endpoints()) != 1 {
			t.Fatalf("status %d: expected 1 attempt, got %v", status, observer.endpoints())
		}
	}
}

func TestEndpointsReturnsCopyInOrder(t *testing.T) {
	configured := []string{"http://b", "http://a"}
	c := NewClient(configured, zap.NewNop())

	got := c.Endpoints()
	if strings.Join(got, ",") != "http://b,http://a" {
		t.Fatalf("unexpected endpoints: %v", got)
	}
	got[0] = "http://mutated"
	configured[1] = "http://mutated"
	if strings.Join(c.Endpoints(), ",") != "http://b,http://a" {
		t.Fatalf("expected client endpoints to be isolated, got %v", c.Endpoints())
	}
}

func TestPredictAttemptOrderFollowsConfiguration(t *testing.T) {
	a := jsonBackend(t, http.StatusOK, Response{Success: false, Error: "a down"})
	b := jsonBackend(t, http.StatusOK, Response{Success: false, Error: "b down"})
	c := jsonBackend(t, http.StatusOK, Response{Success: false, Error: "c down"})

	for _, order := range [][]string{{a.URL, b.URL, c.URL}, {c.URL, a.URL, b.URL}} {
		observer := &recordingObserver{}
		client := NewClient(order, zap.NewNop(), WithObserver(observer))
		_, err := client.Predict(context.Background(), "img")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if strings.Join(observer.endpoints(), ",") != strings.Join(order, ",") {
			t.Fatalf("expected attempts %v, got %v", order, observer.endpoints())
		}
	}
}

func TestPredictAggregatesLastError(t *testing.T) {
	dead := deadEndpoint(t)
	unavailable := jsonBackend(t, http.StatusOK, Response{Success: false, Error: "model unavailable"})

	c := NewClient([]string{dead, unavailable.URL}, zap.NewNop())
	resp, err := c.Predict(context.Background(), "img")
	if resp != nil {
		t.Fatalf("expected no response, got %+v", resp)
	}

	var aggErr *AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregateError, got %T", err)
	}
	if aggErr.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", aggErr.Attempts)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected error to mention last failure, got %q", err.Error())
	}
}

func TestPredictSingleEndpointServerError(t *testing.T) {
	srv := jsonBackend(t, http.StatusOK, Response{Success: false, Error: "model unavailable"})

	c := NewClient([]string{srv.URL}, zap.NewNop())
	_, err := c.Predict(context.Background(), "img")
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected error containing %q, got %v", "model unavailable", err)
	}
}

func TestPredictGenericServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, zap.NewNop())
	_, err := c.Predict(context.Background(), "img")
	if err == nil || !strings.Contains(err.Error(), "server error: 502") {
		t.Fatalf("expected generic server error, got %v", err)
	}
}

func TestPredictTransportFailureOnLastEndpoint(t *testing.T) {
	srv := jsonBackend(t, http.StatusOK, Response{Success: false, Error: "model unavailable"})
	dead := deadEndpoint(t)

	c := NewClient([]string{srv.URL, dead}, zap.NewNop())
	_, err := c.Predict(context.Background(), "img")

	var aggErr *AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregateError, got %T", err)
	}
	if strings.Contains(aggErr.LastError, "model unavailable") {
		t.Fatalf("expected last error to come from the final endpoint, got %q", aggErr.LastError)
	}
	if aggErr.LastError == "" {
		t.Fatal("expected transport failure message")
	}
}

func TestPredictWithoutEndpoints(t *testing.T) {
	c := NewClient(nil, zap.NewNop())
	_, err := c.Predict(context.Background(), "img")

	var aggErr *AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregateError, got %T", err)
	}
	if aggErr.Attempts != 0 {
		t.Fatalf("expected 0 attempts, got %d", aggErr.Attempts)
	}
}

func TestPredictCustomPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/predict" {
			_ = json.NewEncoder(w).Encode(Response{Error: "unexpected path " + r.URL.Path})
			return
		}
		_ = json.NewEncoder(w).Encode(Response{Success: true, Class: "acne", Confidence: 1})
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL + "/"}, zap.NewNop(), WithPaths("/v2/predict", ""))
	if _, err := c.Predict(context.Background(), "img"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/ping" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	c := NewClient([]string{deadEndpoint(t), down.URL, up.URL}, zap.NewNop())
	if !c.CheckHealth(context.Background()) {
		t.Fatal("expected healthy backend")
	}

	endpoint, ok := c.Probe(context.Background())
	if !ok || endpoint != up.URL {
		t.Fatalf("expected probe to report %s, got %q (ok=%t)", up.URL, endpoint, ok)
	}
}

func TestCheckHealthAllDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	c := NewClient([]string{deadEndpoint(t), down.URL}, zap.NewNop())
	if c.CheckHealth(context.Background()) {
		t.Fatal("expected unhealthy result")
	}
}
