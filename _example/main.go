package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/kvcachego"
	"github.com/hupe1980/kvcachego/objstore"
)

func main() {
	ctx := context.Background()

	cfg := kvcachego.DefaultConfig()
	cfg.ModelID = "demo-model"
	cfg.BlockSizeTokens = 4
	cfg.CapacityBytes = 1 << 20

	// In-memory store for the demo; swap in kvcachego.Open(ctx, cfg) to talk
	// to a MinIO or S3 endpoint.
	cache, err := kvcachego.New(cfg, objstore.NewMemoryStore())
	if err != nil {
		log.Fatal(err)
	}
	defer cache.Close()

	prompt := []uint32{1, 2, 3, 4, 5, 6, 7, 8}

	fmt.Println("--- Store ---")
	for i, payload := range [][]byte{[]byte("kv-block-0"), []byte("kv-block-1")} {
		if !cache.Store(ctx, prompt, uint32(i), payload) {
			log.Fatalf("store of block %d failed", i)
		}
		fmt.Printf("stored block %d (%d bytes)\n", i, len(payload))
	}

	fmt.Println("--- Lookup ---")
	res := cache.Lookup(prompt)
	fmt.Printf("matched %d of %d tokens across %d blocks\n",
		res.MatchedTokens, len(prompt), len(res.Handles))

	fmt.Println("--- Load ---")
	for _, h := range res.Handles {
		data, ok := cache.Load(ctx, h)
		if !ok {
			log.Fatalf("load of %s failed", h.ObjectKey)
		}
		fmt.Printf("block %d: %q (key %s)\n", h.Index, data, h.ObjectKey)
	}

	fmt.Printf("used %d of %d capacity bytes\n", cache.UsedBytes(), cache.CapacityBytes())
}
