package repo

import (
	"sync"

	model "go_deproxy/internal/domain/model"
)

// chainRepoImpl guards one map with one mutex. The lock covers map access
// only; handlers and I/O never run under it.
type chainRepoImpl struct {
	mu     sync.Mutex
	chains map[string]*model.MessageChain
}

var _ MessageChainRepoIface = (*chainRepoImpl)(nil)

func NewMessageChainRepo() MessageChainRepoIface {
	return &chainRepoImpl{
		chains: make(map[string]*model.MessageChain),
	}
}

func (r *chainRepoImpl) Register(id string, chain *model.MessageChain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chains[id]; ok {
		return &model.DuplicateIDError{ID: id}
	}
	r.chains[id] = chain
	return nil
}

func (r *chainRepoImpl) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chains[id]; !ok {
		return &model.NotFoundError{ID: id}
	}
	delete(r.chains, id)
	return nil
}

func (r *chainRepoImpl) Lookup(id string) *model.MessageChain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chains[id]
}

func (r *chainRepoImpl) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chains)
}
