// Package seaweed is a client for the SeaweedFS HTTP API.
//
// Workflow:
//  1. Request a file assignment from the master (GET /dir/assign)
//  2. Upload content to the assigned volume server (POST to returned url)
//  3. Access the file by fid (GET http://volume:port/fid)
package seaweed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "telimport/pkg/common/errors"
)

const (
	metaTimeout    = 10 * time.Second // assign / lookup / delete
	payloadTimeout = 30 * time.Second // upload / download
)

// Client talks to a SeaweedFS master and its volume servers.
type Client struct {
	masterURL string
	// volumeURL, when set, bypasses the master lookup for reads and deletes.
	volumeURL string
	meta      *http.Client
	payload   *http.Client
}

// NewClient creates a client for the given master URL. volumeURL may be empty;
// when provided it overrides location resolution for download and delete.
func NewClient(masterURL, volumeURL string) *Client {
	return &Client{
		masterURL: strings.TrimRight(masterURL, "/"),
		volumeURL: strings.TrimRight(volumeURL, "/"),
		meta:      &http.Client{Timeout: metaTimeout},
		payload:   &http.Client{Timeout: payloadTimeout},
	}
}

type assignResponse struct {
	Fid       string `json:"fid"`
	URL       string `json:"url"`
	PublicURL string `json:"publicUrl"`
}

type lookupResponse struct {
	Locations []struct {
		URL       string `json:"url"`
		PublicURL string `json:"publicUrl"`
	} `json:"locations"`
}

// Assign requests a new file id and writable location from the master.
func (c *Client) Assign(ctx context.Context) (fid, uploadURL string, err error) {
	assignURL := c.masterURL + "/dir/assign"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assignURL, nil)
	if err != nil {
		return "", "", apperrors.Transport("assign request failed", err)
	}
	resp, err := c.meta.Do(req)
	if err != nil {
		return "", "", apperrors.Transport("assign request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", apperrors.Transport(fmt.Sprintf("assign returned status %d", resp.StatusCode), nil)
	}

	var ar assignResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", "", apperrors.Transport("invalid assignment response", err)
	}
	if ar.Fid == "" || (ar.URL == "" && ar.PublicURL == "") {
		return "", "", apperrors.Transport("invalid assignment response: missing fid or location", nil)
	}

	if c.volumeURL != "" {
		uploadURL = c.volumeURL + "/" + ar.Fid
	} else {
		// publicUrl is preferred: it should be reachable from outside the cluster.
		location := ar.PublicURL
		if location == "" {
			location = ar.URL
		}
		uploadURL = ensureScheme(location) + "/" + ar.Fid
	}

	log.Printf("seaweed: assigned fid %s, upload url %s", ar.Fid, uploadURL)
	return ar.Fid, uploadURL, nil
}

// Upload assigns a file id and posts content to the returned volume URL.
func (c *Client) Upload(ctx context.Context, content []byte, filename string) (fid, fileURL string, err error) {
	fid, uploadURL, err := c.Assign(ctx)
	if err != nil {
		return "", "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", "", apperrors.Transport("multipart encoding failed", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", "", apperrors.Transport("multipart encoding failed", err)
	}
	if err := mw.Close(); err != nil {
		return "", "", apperrors.Transport("multipart encoding failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return "", "", apperrors.Transport("upload request failed", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.payload.Do(req)
	if err != nil {
		return "", "", apperrors.Transport("upload request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", apperrors.Transport(fmt.Sprintf("upload returned status %d", resp.StatusCode), nil)
	}

	log.Printf("seaweed: uploaded %s as %s", filename, fid)
	return fid, uploadURL, nil
}

// Download fetches a file by fid, trying each candidate URL in order and
// returning the body and headers of the first 2xx response. If every
// candidate fails the last transport error is returned.
func (c *Client) Download(ctx context.Context, fid string) ([]byte, http.Header, error) {
	primary, err := c.resolve(ctx, fid)
	if err != nil {
		return nil, nil, err
	}
	candidates := candidateURLs(primary, c.masterURL, fid)
	log.Printf("seaweed: downloading %s, candidates %v", fid, candidates)

	var lastErr error
	for _, u := range candidates {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := c.payload.Do(req)
		if err != nil {
			log.Printf("seaweed: download from %s failed: %v", u, err)
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			log.Printf("seaweed: download from %s returned status %d", u, resp.StatusCode)
			lastErr = fmt.Errorf("status %d from %s", resp.StatusCode, u)
			continue
		}
		content, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return content, resp.Header, nil
	}

	return nil, nil, apperrors.Transport(fmt.Sprintf("failed to download %s", fid), lastErr)
}

// Delete removes a file by fid, resolving its location the same way Download does.
func (c *Client) Delete(ctx context.Context, fid string) error {
	target, err := c.resolve(ctx, fid)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return apperrors.Transport("delete request failed", err)
	}
	resp, err := c.meta.Do(req)
	if err != nil {
		return apperrors.Transport("delete request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Transport(fmt.Sprintf("delete returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// resolve determines the primary URL for fid: the volume override when
// configured, otherwise the first location reported by the master for the
// shard owning fid, preferring publicUrl over the cluster-internal url.
func (c *Client) resolve(ctx context.Context, fid string) (string, error) {
	if c.volumeURL != "" {
		return c.volumeURL + "/" + fid, nil
	}

	shard := fid
	if i := strings.Index(fid, ","); i >= 0 {
		shard = fid[:i]
	}
	lookupURL := fmt.Sprintf("%s/dir/lookup?volumeId=%s", c.masterURL, url.QueryEscape(shard))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", apperrors.Transport("lookup request failed", err)
	}
	resp, err := c.meta.Do(req)
	if err != nil {
		return "", apperrors.Transport("lookup request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperrors.Transport(fmt.Sprintf("lookup returned status %d", resp.StatusCode), nil)
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", apperrors.Transport("invalid lookup response", err)
	}
	if len(lr.Locations) == 0 {
		return "", apperrors.Transport(fmt.Sprintf("no location found for fid %s", fid), nil)
	}

	location := lr.Locations[0].PublicURL
	if location == "" {
		location = lr.Locations[0].URL
	}
	return ensureScheme(location) + "/" + fid, nil
}

// candidateURLs builds the ordered download candidate list: the primary URL,
// plus two Docker-friendly fallbacks when the primary host is a private or
// loopback address that is likely unreachable from outside the cluster.
func candidateURLs(primary, masterURL, fid string) []string {
	candidates := []string{primary}

	host := hostOf(primary)
	if host == "" || !isPrivateHost(host) {
		return candidates
	}

	candidates = append(candidates, fmt.Sprintf("http://localhost:8080/%s", fid))
	if mh := hostOf(masterURL); mh != "" {
		candidates = append(candidates, fmt.Sprintf("http://%s:8080/%s", mh, fid))
	}
	return candidates
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// isPrivateHost reports whether host is loopback or in an RFC1918 range.
func isPrivateHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

func ensureScheme(location string) string {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return strings.TrimRight(location, "/")
	}
	return "http://" + strings.TrimRight(location, "/")
}
