package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdmit_DuplicateRejected(t *testing.T) {
	f := New(10)
	assert.True(t, f.Admit("x"))
	assert.False(t, f.Admit("x"))
	assert.Equal(t, 1, f.Len())
}

func TestAdmit_EvictsOldestFirst(t *testing.T) {
	f := New(100)
	for i := 1; i <= 150; i++ {
		assert.True(t, f.Admit(fmt.Sprintf("e%d", i)))
	}

	assert.Equal(t, 100, f.Len())
	assert.False(t, f.Contains("e1"))
	assert.False(t, f.Contains("e50"))
	assert.True(t, f.Contains("e51"))
	assert.True(t, f.Contains("e150"))

	// evicted ids are admitted again
	assert.True(t, f.Admit("e1"))
	assert.False(t, f.Contains("e51"))
}

func TestAdmit_LookupDoesNotRefresh(t *testing.T) {
	f := New(2)
	f.Admit("a")
	f.Admit("b")
	assert.False(t, f.Admit("a"))
	f.Admit("c")

	assert.False(t, f.Contains("a"), "a was inserted first and must be evicted")
	assert.True(t, f.Contains("b"))
}

func TestAdmit_EmptyIDAlwaysAdmitted(t *testing.T) {
	f := New(1)
	assert.True(t, f.Admit(""))
	assert.True(t, f.Admit(""))
	assert.Equal(t, 0, f.Len())
}

func TestAdmit_Concurrent(t *testing.T) {
	f := New(1000)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if f.Admit(fmt.Sprintf("id-%d", i)) {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, admitted)
}
