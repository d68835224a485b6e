package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/fit_go_server/internal/pkg/token"
)

func TestTokenSequence(t *testing.T) {
	gen := TokenSequence("a", "b")

	first, _ := gen()
	second, _ := gen()
	third, err := gen()

	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
	require.NoError(t, err)
	assert.Len(t, third, token.ByteLength*2)
}

func TestTokenSequence_Concurrent(t *testing.T) {
	fixed := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"}
	gen := TokenSequence(fixed...)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []string
	)
	for range fixed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := gen()
			assert.NoError(t, err)
			mu.Lock()
			got = append(got, tok)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, fixed, got)
}
