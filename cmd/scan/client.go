package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kvistad/russekort/internal/models"
)

// apiClient talks to the russekort API. It satisfies album.CardGetter so
// the local album can resolve ids to full records.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) GetCard(ctx context.Context, id string) (*models.Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/cards/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching card: status %d", resp.StatusCode)
	}

	card := &models.Card{}
	if err := json.NewDecoder(resp.Body).Decode(card); err != nil {
		return nil, fmt.Errorf("decoding card: %w", err)
	}
	return card, nil
}

func (c *apiClient) RecordScan(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/cards/"+id+"/scan", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recording scan: status %d", resp.StatusCode)
	}
	return nil
}
