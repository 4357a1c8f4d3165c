package locks

import (
	"hash/fnv"
	"sync"
)

const shards = 64

// Keyed é um mutex com striping por chave. Serializa operações da
// mesma chave (ex: admissões do mesmo usuário) sem um lock global.
type Keyed struct {
	mus [shards]sync.Mutex
}

func NewKeyed() *Keyed { return &Keyed{} }

// Lock trava o shard da chave e retorna a função de unlock.
func (k *Keyed) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &k.mus[h.Sum32()%shards]
	mu.Lock()
	return mu.Unlock
}
