package odds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Tolerância de drift entre a odd vista pelo cliente e a odd corrente
const maxDrift = 0.001

var ErrOddChanged = errors.New("odd changed since selection")

type Validator struct {
	Rdb *redis.Client
}

func NewValidator(r *redis.Client) *Validator { return &Validator{Rdb: r} }

// Espera chave "odds:{fixtureID}:{marketID}:{selection}" => valor string com a odd, ex: "1.85"
func key(fixtureID, marketID, selection string) string {
	return fmt.Sprintf("odds:%s:%s:%s", fixtureID, marketID, selection)
}

// Check compara a odd enviada pelo cliente com a odd corrente do
// catálogo. Chave ausente no cache não bloqueia a admissão: o
// catálogo pode não estar aquecido para a partida.
func (v *Validator) Check(ctx context.Context, fixtureID, marketID, selection string, clientOdd float64) error {
	val, err := v.Rdb.Get(ctx, key(fixtureID, marketID, selection)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return nil // cache fora do ar não bloqueia admissão
	}
	current, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	if math.Abs(current-clientOdd) > maxDrift {
		return fmt.Errorf("%w: current=%s", ErrOddChanged, val)
	}
	return nil
}
