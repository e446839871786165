package display

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/spelling-bee-backend/internal/templates"
)

// FetchTemplates loads the template set once at startup. An empty url means
// the defaults.
func FetchTemplates(ctx context.Context, client *http.Client, url string) (templates.Set, error) {
	if url == "" {
		return templates.Defaults(), nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch templates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch templates: %s", resp.Status)
	}
	var set templates.Set
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return templates.Defaults().Merge(set), nil
}
