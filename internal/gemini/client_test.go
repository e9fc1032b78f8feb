package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateImagesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateImages", r.URL.Path)
		require.Equal(t, "key-1", r.URL.Query().Get("key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a red fox", body["prompt"]["text"])

		_, _ = w.Write([]byte(`{"images":[{"base64":"Zm94"}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/v1beta", APIKey: "key-1"})
	res, err := client.Generate(context.Background(), "a red fox")
	require.NoError(t, err)
	require.Equal(t, "Zm94", res.Base64)
	require.Equal(t, EnvelopeImages, res.Kind)
}

func TestGenerateContentRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-2.0-flash-exp:generateContent", r.URL.Path)

		var body generateContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		require.Equal(t, "a blue whale", body.Contents[0].Parts[0].Text)
		require.Contains(t, body.GenerationConfig.ResponseModalities, "IMAGE")

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"},{"inlineData":{"mimeType":"image/png","data":"d2hhbGU="}}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Model: "gemini-2.0-flash-exp", API: APIGenerateContent})
	res, err := client.Generate(context.Background(), "a blue whale")
	require.NoError(t, err)
	require.Equal(t, "d2hhbGU=", res.Base64)
	require.Equal(t, EnvelopeContentParts, res.Kind)
}

func TestGenerateNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}).Generate(context.Background(), "x")
	var nonJSON *NonJSONError
	require.True(t, errors.As(err, &nonJSON))
	require.Equal(t, "upstream exploded", nonJSON.Raw)
	require.Equal(t, http.StatusBadGateway, nonJSON.StatusCode)
}

func TestGenerateErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}).Generate(context.Background(), "x")
	var noImage *NoImageError
	require.True(t, errors.As(err, &noImage))
	require.Equal(t, http.StatusNotFound, noImage.StatusCode)

	body, ok := noImage.Response.(map[string]any)
	require.True(t, ok)
	require.Contains(t, body, "error")
}

func TestGenerateUnrecognisedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"abc"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}).Generate(context.Background(), "x")
	var noImage *NoImageError
	require.True(t, errors.As(err, &noImage))
	require.Equal(t, http.StatusOK, noImage.StatusCode)
}

func TestGenerateTransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: base, APIKey: "super-secret"}).Generate(context.Background(), "x")
	var transport *TransportError
	require.True(t, errors.As(err, &transport))
	require.NotContains(t, err.Error(), "super-secret")
}

func TestGenerateUnsupportedAPI(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k", API: "predict"}).Generate(context.Background(), "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported api")
}
