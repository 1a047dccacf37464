package gitlab

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourceplane/kubefetch/internal/jobref"
	"github.com/sourceplane/kubefetch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bundle(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("kubeconfig/oidc-kubeconfig")
	require.NoError(t, err)
	_, err = w.Write([]byte("apiVersion: v1"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, model.JobReference) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ref, err := jobref.Parse(srv.URL + "/platform/clusters/prod/-/jobs/321")
	require.NoError(t, err)
	return srv, ref
}

func TestNewClientMissingToken(t *testing.T) {
	_, err := NewClient("", nil)
	assert.ErrorIs(t, err, model.ErrMissingCredential)
}

func TestResolveProjectID(t *testing.T) {
	_, ref := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/platform%2Fclusters%2Fprod", r.URL.EscapedPath())
		if r.Header.Get("PRIVATE-TOKEN") != "glpat-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id": 1234, "path_with_namespace": "platform/clusters/prod"}`))
	})

	client, err := NewClient("glpat-test", nil)
	require.NoError(t, err)

	id, err := client.ResolveProjectID(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 1234, id)
}

func TestResolveProjectIDNotFound(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "404", status: http.StatusNotFound, body: `{"message":"404 Project Not Found"}`},
		{name: "No id", status: http.StatusOK, body: `{"message":"ok"}`},
		{name: "String id", status: http.StatusOK, body: `{"id":"abc"}`},
		{name: "Not JSON", status: http.StatusOK, body: `<html></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ref := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			client, err := NewClient("glpat-test", nil)
			require.NoError(t, err)

			_, err = client.ResolveProjectID(context.Background(), ref)
			assert.ErrorIs(t, err, model.ErrProjectNotFound)
		})
	}
}

func TestFetchJobArtifacts(t *testing.T) {
	data := bundle(t)
	_, ref := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/1234/jobs/321/artifacts", r.URL.Path)
		w.Header().Set("Content-Type", "application/zip")
		w.Write(data)
	})

	client, err := NewClient("glpat-test", nil)
	require.NoError(t, err)

	got, err := client.FetchJobArtifacts(context.Background(), ref, 1234)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFetchJobArtifactsFailures(t *testing.T) {
	data := bundle(t)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "Not an archive",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>login</html>"))
			},
		},
		{
			name: "Truncated archive",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(data[:len(data)-30])
			},
		},
		{
			name: "Empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ref := newServer(t, tt.handler)

			client, err := NewClient("glpat-test", nil)
			require.NoError(t, err)

			_, err = client.FetchJobArtifacts(context.Background(), ref, 1)
			assert.ErrorIs(t, err, model.ErrArtifactDownloadFailed)
		})
	}
}

func TestFetchJobArtifactsTimeout(t *testing.T) {
	release := make(chan struct{})
	_, ref := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client, err := NewClient("glpat-test", nil)
	require.NoError(t, err)
	client.DownloadTimeout = 50 * time.Millisecond

	_, err = client.FetchJobArtifacts(context.Background(), ref, 1)
	assert.ErrorIs(t, err, model.ErrArtifactDownloadFailed)
}

func TestMissingTokenSendsNothing(t *testing.T) {
	var hits atomic.Int32
	_, ref := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	client := &Client{http: http.DefaultClient, RequestTimeout: time.Second, DownloadTimeout: time.Second}

	_, err := client.ResolveProjectID(context.Background(), ref)
	assert.ErrorIs(t, err, model.ErrMissingCredential)
	_, err = client.FetchJobArtifacts(context.Background(), ref, 1)
	assert.ErrorIs(t, err, model.ErrMissingCredential)
	assert.Zero(t, hits.Load())
}

func TestWithCACert(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1234}`))
	}))
	t.Cleanup(srv.Close)

	ca := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	client, err := NewClient("glpat-test", nil, WithCACert(ca))
	require.NoError(t, err)

	ref, err := jobref.Parse(srv.URL + "/platform/clusters/prod/-/jobs/321")
	require.NoError(t, err)
	id, err := client.ResolveProjectID(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 1234, id)
}

func TestWithCACertRejectsInvalidPEM(t *testing.T) {
	for name, data := range map[string][]byte{
		"Not PEM":                 []byte("not a pem"),
		"Empty":                   nil,
		"Unparseable certificate": pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")}),
	} {
		t.Run(name, func(t *testing.T) {
			client, err := NewClient("glpat-test", nil, WithCACert(data))
			require.Error(t, err)
			assert.Nil(t, client)
			assert.Contains(t, err.Error(), "no PEM encoded certificates")
		})
	}
}
