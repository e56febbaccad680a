package randutil

import (
	"math/rand"
	"sync"
	"time"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	mu sync.Mutex
	r  = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func Int63n() int64 {
	mu.Lock()
	defer mu.Unlock()
	return r.Int63()
}

func Uint64n() uint64 {
	mu.Lock()
	defer mu.Unlock()
	return r.Uint64()
}

func StringN(n int) string {
	mu.Lock()
	defer mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}
