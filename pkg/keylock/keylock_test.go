package keylock

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_RoundsUp(t *testing.T) {
	a := assert.New(t)
	a.Len(New(0).stripes, DefaultStripes)
	a.Len(New(3).stripes, 4)
	a.Len(New(16).stripes, 16)
}

func TestIndex_Stable(t *testing.T) {
	a := assert.New(t)
	l := New(64)
	for i := 0; i < 100; i++ {
		k := "client-" + strconv.Itoa(i)
		idx := l.Index(k)
		a.Equal(idx, l.Index(k))
		a.True(idx >= 0 && idx < 64)
	}
}

func TestLock_Serialises(t *testing.T) {
	l := New(8)
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("same-key")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
