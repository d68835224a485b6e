package testutil

import (
	"sync"

	"github.com/qs3c/fit_go_server/internal/pkg/token"
)

// TokenSequence 依次返回给定的 token，用完后回退到 token.Generate，可并发调用
func TokenSequence(tokens ...string) token.Generator {
	var (
		mu sync.Mutex
		i  int
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i < len(tokens) {
			t := tokens[i]
			i++
			return t, nil
		}
		return token.Generate()
	}
}
