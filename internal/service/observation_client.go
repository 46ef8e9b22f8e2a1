package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SpeciesRecord mirrors the observation service's species listing
// payload as seen by the aggregator.
type SpeciesRecord struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	AuthorID    uint64  `json:"authorId"`
	RarityScore float64 `json:"rarityScore"`
	CreatedAt   string  `json:"createdAt"`
	DeletedAt   *string `json:"deletedAt,omitempty"`
}

// ObservationRecord mirrors the observation service's per-species
// observation payload.
type ObservationRecord struct {
	ID          uint64  `json:"id"`
	SpeciesID   uint64  `json:"speciesId"`
	AuthorID    uint64  `json:"authorId"`
	Description string  `json:"description"`
	DangerLevel int     `json:"dangerLevel"`
	Status      string  `json:"status"`
	DeletedAt   *string `json:"deletedAt,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// ObservationClient reads species and observations from the
// observation service on behalf of the aggregator. The caller's bearer
// token is forwarded unchanged; the aggregator has no credentials of
// its own.
type ObservationClient struct {
	BaseURL string
	Client  *http.Client
}

func NewObservationClient(baseURL string) *ObservationClient {
	return &ObservationClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchAllSpecies returns the full species list.
func (c *ObservationClient) FetchAllSpecies(ctx context.Context, token string) ([]SpeciesRecord, error) {
	var out []SpeciesRecord
	if err := c.get(ctx, c.BaseURL+"/api/species", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchObservationsBySpecies returns every observation of one species.
func (c *ObservationClient) FetchObservationsBySpecies(ctx context.Context, speciesID uint64, token string) ([]ObservationRecord, error) {
	var out []ObservationRecord
	url := fmt.Sprintf("%s/api/species/%d/observations", c.BaseURL, speciesID)
	if err := c.get(ctx, url, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ObservationClient) get(ctx context.Context, url, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("observation service returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
