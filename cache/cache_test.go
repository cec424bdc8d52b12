/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetOrComputeMemoizes(t *testing.T) {
	c := New()
	calls := 0

	for i := 0; i < 3; i++ {
		text, hit, err := c.GetOrCompute("prompt", func() (string, error) {
			calls++
			return "result", nil
		})
		if err != nil {
			t.Fatalf("GetOrCompute() error = %v", err)
		}
		if text != "result" {
			t.Errorf("GetOrCompute() = %q, want %q", text, "result")
		}
		wantHit := i > 0
		if hit != wantHit {
			t.Errorf("call %d: hit = %v, want %v", i, hit, wantHit)
		}
	}

	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	c := New()
	var calls int64
	release := make(chan struct{})
	entered := make(chan struct{})

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	wg.Add(callers)

	// First caller blocks inside compute until released; the rest must wait
	// for it rather than computing again.
	go func() {
		defer wg.Done()
		text, _, _ := c.GetOrCompute("k", func() (string, error) {
			atomic.AddInt64(&calls, 1)
			close(entered)
			<-release
			return "shared", nil
		})
		results[0] = text
	}()

	<-entered
	for i := 1; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			text, _, err := c.GetOrCompute("k", func() (string, error) {
				atomic.AddInt64(&calls, 1)
				return "duplicate", nil
			})
			if err != nil {
				t.Errorf("caller %d: error = %v", i, err)
			}
			results[i] = text
		}(i)
	}

	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("compute ran %d times, want 1", got)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("caller %d got %q, want %q", i, r, "shared")
		}
	}
}

func TestFailedComputeIsNotStored(t *testing.T) {
	c := New()
	failing := errors.New("backend down")
	calls := 0

	_, _, err := c.GetOrCompute("k", func() (string, error) {
		calls++
		return "", failing
	})
	if !errors.Is(err, failing) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, failing)
	}

	// A retry computes again and may now succeed
	text, hit, err := c.GetOrCompute("k", func() (string, error) {
		calls++
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if hit {
		t.Error("retry reported a cache hit after a failed compute")
	}
	if text != "recovered" || calls != 2 {
		t.Errorf("retry = %q (calls %d), want %q (calls 2)", text, calls, "recovered")
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(WithMaxEntries(2))

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("k%d", i)
		_, _, err := c.GetOrCompute(key, func() (string, error) { return key, nil })
		if err != nil {
			t.Fatalf("GetOrCompute(%s) error = %v", key, err)
		}
	}

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("oldest entry k0 should have been evicted")
	}
	if _, ok := c.Get("k2"); !ok {
		t.Error("newest entry k2 should be present")
	}
}

func TestGetSkipsInFlight(t *testing.T) {
	c := New()
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _, _ = c.GetOrCompute("k", func() (string, error) {
			close(entered)
			<-release
			return "v", nil
		})
	}()

	<-entered
	if _, ok := c.Get("k"); ok {
		t.Error("Get() returned a value for an in-flight computation")
	}
	close(release)
}
