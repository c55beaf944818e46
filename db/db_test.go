package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := OpenRedis(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rdb.Close()

	if err := rdb.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("got %q", got)
	}
}

func TestOpenRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := OpenRedis(context.Background(), addr); err == nil {
		t.Fatalf("expected ping error")
	}
}
