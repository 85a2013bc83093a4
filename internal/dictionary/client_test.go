package dictionary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "rapid-key", time.Second)
}

func TestLookup(t *testing.T) {
	var gotPath, gotKey string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-RapidAPI-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"word": "lighthouse",
			"results": [{"definition": "a tower with a light", "partOfSpeech": "noun"}],
			"pronunciation": {"all": "ˈlaɪtˌhaʊs"},
			"frequency": 3.2
		}`))
	})

	word, err := client.Lookup(context.Background(), "lighthouse")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if gotPath != "/words/lighthouse" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "rapid-key" {
		t.Errorf("X-RapidAPI-Key = %q", gotKey)
	}
	if word.Word != "lighthouse" || len(word.Results) != 1 {
		t.Errorf("word = %+v", word)
	}
	if word.Pronunciation["all"] == "" {
		t.Error("pronunciation missing")
	}
}

func TestLookup_NotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Lookup(context.Background(), "zzzz")
	if !errors.Is(err, ErrWordNotFound) {
		t.Fatalf("error = %v, want ErrWordNotFound", err)
	}
}

func TestSynonyms(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/words/big/synonyms" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"word":"big","synonyms":["large","huge"]}`))
	})

	synonyms, err := client.Synonyms(context.Background(), "big")
	if err != nil {
		t.Fatalf("Synonyms() error = %v", err)
	}
	if len(synonyms) != 2 || synonyms[0] != "large" {
		t.Errorf("synonyms = %v", synonyms)
	}
}

func TestFrequency(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"word":"the","frequency":{"perMillion":55000.5}}`))
	})

	freq, err := client.Frequency(context.Background(), "the")
	if err != nil {
		t.Fatalf("Frequency() error = %v", err)
	}
	if freq != 55000.5 {
		t.Errorf("frequency = %v", freq)
	}
}

func TestGatewayError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.Lookup(context.Background(), "word"); err == nil {
		t.Fatal("5xx must be an error")
	}
}
