// Package diag captures diagnostic artifacts (page screenshots) when a
// navigation fails or a challenge refuses to clear.
package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antoineross/supabase-go"
	"github.com/playwright-community/playwright-go"
	storage_go "github.com/supabase-community/storage-go"

	"harvester/internal/config"
	"harvester/internal/logger"
)

type Service struct {
	log *logger.Logger
	cfg config.Config

	supabaseClient *supabase.Client
}

func New(cfg config.Config) *Service {
	s := &Service{log: logger.New("DiagService"), cfg: cfg}
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
		if err != nil {
			s.log.LogWarnf("Supabase client init failed: %v", err)
		} else {
			s.supabaseClient = client
		}
	}
	return s
}

// CapturePage screenshots the current page state and stores it. The returned
// reference is a signed bucket URL when Supabase is configured, otherwise a
// /files path served by the HTTP server. Losing a screenshot must never fail
// the query it documents, so callers treat errors as log-and-continue.
func (s *Service) CapturePage(page playwright.Page, label string) (string, error) {
	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	return s.save(data, label)
}

func (s *Service) save(data []byte, label string) (string, error) {
	name := time.Now().Format("20060102_150405") + "_" + sanitize(label) + ".png"

	if s.supabaseClient != nil && s.cfg.SupabaseBucket != "" {
		bucketPath := filepath.ToSlash(filepath.Join("screenshots", name))
		mimeType := mime.TypeByExtension(".png")
		reader := bytes.NewReader(data)
		if _, err := s.supabaseClient.Storage.UploadFile(s.cfg.SupabaseBucket, bucketPath, reader, storage_go.FileOptions{ContentType: &mimeType}); err != nil {
			s.log.LogWarnf("Supabase upload failed, falling back to local: %v", err)
			return s.saveLocal(data, name)
		}
		signed, err := s.signURL(s.cfg.SupabaseBucket, bucketPath, 15*60)
		if err != nil {
			s.log.LogWarnf("Signed URL creation failed, falling back to local: %v", err)
			return s.saveLocal(data, name)
		}
		return signed, nil
	}
	return s.saveLocal(data, name)
}

func (s *Service) saveLocal(data []byte, name string) (string, error) {
	dir := filepath.Join(s.cfg.DataDir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return "/files/screenshots/" + name, nil
}

// signURL calls the storage sign endpoint directly with fresh headers rather
// than going through the client library's signing helper.
func (s *Service) signURL(bucket, objectPath string, expiresIn int) (string, error) {
	signEndpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s",
		strings.TrimRight(s.cfg.SupabaseURL, "/"), bucket, objectPath)

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(map[string]int{"expiresIn": expiresIn}); err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost, signEndpoint, buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseServiceKey)
	req.Header.Set("apikey", s.cfg.SupabaseServiceKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sign object: status %d", resp.StatusCode)
	}

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	path := out.SignedURL
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasPrefix(path, "/storage/v1/") {
		path = "/storage/v1" + path
	}
	return strings.TrimRight(s.cfg.SupabaseURL, "/") + path, nil
}

func sanitize(u string) string {
	replacer := strings.NewReplacer(":", "-", "/", "-", "?", "-", "&", "-", "=", "-", "#", "-", "%", "")
	out := replacer.Replace(u)
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}
