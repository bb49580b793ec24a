// Package pokeapi fetches entity records from the public PokeAPI REST
// endpoints.
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pokelab/pokedex/internal/domain"
)

const defaultBaseURL = "https://pokeapi.co/api/v2"

// Client fetches Pokémon data with proactive rate limiting against the
// public API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	workers    int
	logger     *zap.Logger
}

// Config holds the PokeAPI client settings.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	BurstSize         int
	Workers           int
	Timeout           time.Duration
	Logger            *zap.Logger
}

// New creates a PokeAPI client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		workers:    cfg.Workers,
		logger:     cfg.Logger,
	}
}

// pokemonResponse is the subset of /pokemon/{name} the record needs.
type pokemonResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
	} `json:"abilities"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
}

// speciesResponse is the subset of /pokemon-species/{name} the record needs.
type speciesResponse struct {
	IsLegendary bool `json:"is_legendary"`
	IsMythical  bool `json:"is_mythical"`
	IsBaby      bool `json:"is_baby"`
	Habitat     *struct {
		Name string `json:"name"`
	} `json:"habitat"`
	Color *struct {
		Name string `json:"name"`
	} `json:"color"`
	EvolvesFrom *struct {
		Name string `json:"name"`
	} `json:"evolves_from_species"`
	FlavorTextEntries []struct {
		FlavorText string `json:"flavor_text"`
		Language   struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"flavor_text_entries"`
}

// Fetch retrieves a single Pokémon and its species details as one record.
func (c *Client) Fetch(ctx context.Context, name string) (domain.EntityRecord, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return domain.EntityRecord{}, fmt.Errorf("name is required: %w", domain.ErrInvalidRecord)
	}

	var pokemon pokemonResponse
	if err := c.getJSON(ctx, "/pokemon/"+name, &pokemon); err != nil {
		return domain.EntityRecord{}, fmt.Errorf("fetch pokemon %s: %w", name, err)
	}

	var species speciesResponse
	if err := c.getJSON(ctx, "/pokemon-species/"+name, &species); err != nil {
		return domain.EntityRecord{}, fmt.Errorf("fetch species %s: %w", name, err)
	}

	return buildRecord(pokemon, species), nil
}

// FetchAll retrieves records for every name using a bounded worker pool.
// Order of the result matches the input. The first error cancels the rest.
func (c *Client) FetchAll(ctx context.Context, names []string) ([]domain.EntityRecord, error) {
	if len(names) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		idx  int
		name string
	}

	jobs := make(chan job)
	records := make([]domain.EntityRecord, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				rec, err := c.Fetch(ctx, j.name)
				if err != nil {
					errs[j.idx] = err
					cancel()
					continue
				}
				records[j.idx] = rec
			}
		}()
	}

	for i, name := range names {
		select {
		case jobs <- job{idx: i, name: name}:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	// Prefer the root failure over cancellation fallout from other workers.
	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if !errors.Is(err, context.Canceled) {
			firstErr = err
			break
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	c.logger.Info("records fetched", zap.Int("count", len(records)))
	return records, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// buildRecord flattens the two API responses into one record. The first
// English flavor text becomes the description with line breaks collapsed.
func buildRecord(pokemon pokemonResponse, species speciesResponse) domain.EntityRecord {
	rec := domain.EntityRecord{
		ID:        pokemon.ID,
		Name:      pokemon.Name,
		Stats:     make(map[string]int, len(pokemon.Stats)),
		Legendary: species.IsLegendary,
		Mythical:  species.IsMythical,
		Baby:      species.IsBaby,
		Source:    domain.SourcePokeAPI,
	}

	for _, t := range pokemon.Types {
		rec.Types = append(rec.Types, t.Type.Name)
	}
	for _, a := range pokemon.Abilities {
		rec.Abilities = append(rec.Abilities, a.Ability.Name)
	}
	for _, s := range pokemon.Stats {
		rec.Stats[s.Stat.Name] = s.BaseStat
	}

	if species.Habitat != nil {
		rec.Habitat = species.Habitat.Name
	}
	if species.Color != nil {
		rec.Color = species.Color.Name
	}
	if species.EvolvesFrom != nil {
		rec.BaseForm = species.EvolvesFrom.Name
	}

	for _, entry := range species.FlavorTextEntries {
		if entry.Language.Name != "en" {
			continue
		}
		text := strings.Join(strings.Fields(entry.FlavorText), " ")
		rec.Description = text
		break
	}

	return rec
}
