package seaweed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "telimport/pkg/common/errors"
)

func TestAssign(t *testing.T) {
	master := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dir/assign", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"fid":       "3,01637037d6",
			"url":       "volume:8080",
			"publicUrl": "localhost:8080",
		})
	}))
	defer master.Close()

	c := NewClient(master.URL, "")
	fid, uploadURL, err := c.Assign(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "3,01637037d6", fid)
	// publicUrl preferred, scheme prefixed.
	assert.Equal(t, "http://localhost:8080/3,01637037d6", uploadURL)
}

func TestAssign_VolumeOverride(t *testing.T) {
	master := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"fid": "1,0ab", "url": "internal:8080"})
	}))
	defer master.Close()

	c := NewClient(master.URL, "http://override:9000")
	_, uploadURL, err := c.Assign(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "http://override:9000/1,0ab", uploadURL)
}

func TestAssign_MalformedBody(t *testing.T) {
	master := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"fid": "1,0ab"}) // no url fields
	}))
	defer master.Close()

	c := NewClient(master.URL, "")
	_, _, err := c.Assign(context.Background())
	assert.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTransport))
}

func TestDownload_LookupAndFetch(t *testing.T) {
	volume := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3,0abc123", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer volume.Close()

	master := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dir/lookup", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("volumeId"))
		json.NewEncoder(w).Encode(map[string]any{
			"locations": []map[string]string{{"publicUrl": volume.URL}},
		})
	}))
	defer master.Close()

	c := NewClient(master.URL, "")
	content, headers, err := c.Download(context.Background(), "3,0abc123")
	assert.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fake"), content)
	assert.Equal(t, "application/pdf", headers.Get("Content-Type"))
}

func TestDownload_AllCandidatesFail(t *testing.T) {
	master := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"locations": []map[string]string{{"url": "127.0.0.1:1"}}, // nothing listens here
		})
	}))
	defer master.Close()

	c := NewClient(master.URL, "")
	_, _, err := c.Download(context.Background(), "3,0abc123")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTransport))
}

func TestCandidateURLs_PrivatePrimary(t *testing.T) {
	got := candidateURLs("http://172.18.0.5:8080/3,0abc123", "http://seaweed-master:9333", "3,0abc123")
	want := []string{
		"http://172.18.0.5:8080/3,0abc123",
		"http://localhost:8080/3,0abc123",
		"http://seaweed-master:8080/3,0abc123",
	}
	assert.Equal(t, want, got)
}

func TestCandidateURLs_PublicPrimary(t *testing.T) {
	got := candidateURLs("http://cdn.example.com/3,0abc123", "http://localhost:9333", "3,0abc123")
	assert.Equal(t, []string{"http://cdn.example.com/3,0abc123"}, got)
}

func TestCandidateURLs_Loopback(t *testing.T) {
	got := candidateURLs("http://127.0.0.1:8080/1,0ab", "http://localhost:9333", "1,0ab")
	assert.Len(t, got, 3)
}

func TestDelete(t *testing.T) {
	deleted := false
	volume := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = true
	}))
	defer volume.Close()

	c := NewClient("http://unused:9333", volume.URL)
	err := c.Delete(context.Background(), "1,0ab")
	assert.NoError(t, err)
	assert.True(t, deleted)
}

func TestIsPrivateHost(t *testing.T) {
	cases := map[string]bool{
		"172.18.0.5":      true,
		"10.1.2.3":        true,
		"192.168.1.10":    true,
		"127.0.0.1":       true,
		"localhost":       true,
		"8.8.8.8":         false,
		"cdn.example.com": false,
	}
	for host, want := range cases {
		assert.Equal(t, want, isPrivateHost(host), host)
	}
}
