package repo

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	model "go_deproxy/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageChainRepoLifecycle(t *testing.T) {
	r := NewMessageChainRepo()
	chain := model.NewMessageChain("id-1", nil)

	assert.Nil(t, r.Lookup("id-1"))
	require.NoError(t, r.Register("id-1", chain))
	assert.Same(t, chain, r.Lookup("id-1"))
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Unregister("id-1"))
	assert.Nil(t, r.Lookup("id-1"))
	assert.Equal(t, 0, r.Len())
}

func TestMessageChainRepoDuplicate(t *testing.T) {
	r := NewMessageChainRepo()
	first := model.NewMessageChain("dup", nil)
	require.NoError(t, r.Register("dup", first))

	err := r.Register("dup", model.NewMessageChain("dup", nil))
	var dupErr *model.DuplicateIDError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "dup", dupErr.ID)
	assert.Same(t, first, r.Lookup("dup"), "existing entry is kept")
}

func TestMessageChainRepoUnregisterUnknown(t *testing.T) {
	r := NewMessageChainRepo()

	err := r.Unregister("missing")
	var nfErr *model.NotFoundError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "missing", nfErr.ID)

	require.NoError(t, r.Register("once", model.NewMessageChain("once", nil)))
	require.NoError(t, r.Unregister("once"))
	assert.Error(t, r.Unregister("once"), "second unregister must fail loudly")
}

func TestMessageChainRepoConcurrent(t *testing.T) {
	r := NewMessageChainRepo()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			chain := model.NewMessageChain(id, nil)
			assert.NoError(t, r.Register(id, chain))
			assert.Same(t, chain, r.Lookup(id))
			assert.NoError(t, r.Unregister(id))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
