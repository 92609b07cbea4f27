package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLookupDecodesAttestation(t *testing.T) {
	issuedAt := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contracts/0xabc/certificates/cert-1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"issuer": "Universite de Douala",
			"student": "Jean Mbarga",
			"issued_at": "2025-06-15T10:00:00Z",
			"tx_hash": "0xdeadbeef"
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "0xabc", time.Second)
	att, err := client.Lookup(context.Background(), "cert-1")
	require.NoError(t, err)

	assert.Equal(t, "Universite de Douala", att.Issuer)
	assert.Equal(t, "Jean Mbarga", att.Student)
	assert.True(t, issuedAt.Equal(att.IssuedAt))
	assert.Equal(t, "0xdeadbeef", att.TxHash)
	// Contract address falls back to the configured one when the gateway
	// omits it.
	assert.Equal(t, "0xabc", att.ContractAddress)
}

func TestClientLookupNotFoundIsNotAnchored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, "0xabc", time.Second)
	_, err := client.Lookup(context.Background(), "cert-unknown")
	assert.ErrorIs(t, err, ErrNotAnchored)
}

func TestClientLookupGatewayErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("node unreachable"))
	}))
	defer srv.Close()

	client := New(srv.URL, "0xabc", time.Second)
	_, err := client.Lookup(context.Background(), "cert-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAnchored)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "node unreachable")
}

func TestClientLookupEmptyBaseURL(t *testing.T) {
	client := New("", "0xabc", time.Second)
	_, err := client.Lookup(context.Background(), "cert-1")
	assert.ErrorIs(t, err, ErrNotAnchored)
}

func TestClientLookupHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := New(srv.URL, "0xabc", 10*time.Second)
	_, err := client.Lookup(ctx, "cert-1")
	assert.Error(t, err)
}
