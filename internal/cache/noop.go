package cache

import "time"

// NoOp accepts every operation and caches nothing.
type NoOp struct{}

func (NoOp) Get(string) ([]byte, bool) { return nil, false }

func (NoOp) Set(string, []byte, time.Duration) {}

func (NoOp) Delete(string) {}

func (NoOp) Clear() {}

func (NoOp) Invalidate(string) {}
