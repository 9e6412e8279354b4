package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicClock_StartsNearZero(t *testing.T) {
	c := NewMonotonicClock()
	now := c.Now()
	assert.GreaterOrEqual(t, now, 0.0)
	assert.Less(t, now, 1.0)
}

func TestMonotonicClock_NeverDecreases(t *testing.T) {
	c := NewMonotonicClock()

	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		assert.GreaterOrEqual(t, now, prev)
		prev = now
	}
}

func TestMonotonicClock_Advances(t *testing.T) {
	c := NewMonotonicClock()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, c.Now(), 0.005)
}

func TestMonotonicClock_Reset(t *testing.T) {
	c := NewMonotonicClock()
	time.Sleep(20 * time.Millisecond)
	before := c.Now()

	c.Reset()
	assert.Less(t, c.Now(), before, "reset should move the epoch forward")
}

func TestMonotonicClock_ThreadSafe(t *testing.T) {
	c := NewMonotonicClock()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(reset bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if reset && j%10 == 0 {
					c.Reset()
				}
				_ = c.Now()
			}
		}(i%5 == 0)
	}
	wg.Wait()
}
