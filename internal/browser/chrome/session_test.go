package chrome

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectGroupsAreDistinct(t *testing.T) {
	const n = 64
	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := objectGroup()
			mu.Lock()
			seen[g] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for g := range seen {
		assert.Regexp(t, `^webdriverkit-\d+$`, g)
	}
}
