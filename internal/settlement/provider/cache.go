package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL longo: um resultado final não muda mais
const finishedTTL = 24 * time.Hour

// ResultCache guarda resultados de partidas já encerradas.
// Resultados não finalizados nunca entram no cache: o contrato de
// frescor é: só confiar no cache quando finished=true.
type ResultCache struct{ R *redis.Client }

func NewResultCache(r *redis.Client) *ResultCache { return &ResultCache{R: r} }

func keyFixture(fixtureID string) string { return "fixture:result:" + fixtureID }

func (c *ResultCache) Get(ctx context.Context, fixtureID string) (*FixtureResult, bool, error) {
	b, err := c.R.Get(ctx, keyFixture(fixtureID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var res FixtureResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, false, err
	}
	return &res, true, nil
}

func (c *ResultCache) Set(ctx context.Context, res *FixtureResult) error {
	if !res.Finished {
		return nil
	}
	b, _ := json.Marshal(res)
	return c.R.Set(ctx, keyFixture(res.FixtureID), b, finishedTTL).Err()
}
