package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Cache abstrai o cache de resultados (Redis em produção).
type Cache interface {
	Get(ctx context.Context, fixtureID string) (*FixtureResult, bool, error)
	Set(ctx context.Context, res *FixtureResult) error
}

// Client consulta o provedor de resultados de partidas.
// Leitura idempotente e sem efeitos colaterais; resultados finalizados
// são cacheados para não rebater no provedor a cada retry.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   Cache
	Log     *zap.Logger
}

func New(base string, timeout time.Duration, cache Cache, log *zap.Logger) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: timeout},
		Cache:   cache,
		Log:     log,
	}
}

// Result busca o resultado de uma partida. Erros de rede/timeout sobem
// para o chamador como falha transitória; nunca viram "perdeu".
func (c *Client) Result(ctx context.Context, fixtureID string) (*FixtureResult, error) {
	if c.Cache != nil {
		if res, ok, err := c.Cache.Get(ctx, fixtureID); err == nil && ok {
			return res, nil
		}
	}

	url := c.BaseURL + "/provider/fixtures/" + fixtureID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider fixture %s: http %d", fixtureID, resp.StatusCode)
	}

	var res FixtureResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}

	if c.Cache != nil && res.Finished {
		if err := c.Cache.Set(ctx, &res); err != nil && c.Log != nil {
			c.Log.Warn("result cache set", zap.String("fixture_id", fixtureID), zap.Error(err))
		}
	}
	return &res, nil
}
