//go:build integration

package testutil

import (
	"testing"
)

// FlushDB empties one Redis database.
func FlushDB(t *testing.T, db int) {
	t.Helper()
	if err := RedisClient(t, db).FlushDB(Context(t)).Err(); err != nil {
		t.Fatalf("flushing DB %d: %v", db, err)
	}
}

// SeedHashes writes each key's fields as a Redis hash. An empty field map
// writes the NULL placeholder SONiC uses for attribute-less objects.
func SeedHashes(t *testing.T, db int, hashes map[string]map[string]string) {
	t.Helper()

	client := RedisClient(t, db)
	ctx := Context(t)
	for key, fields := range hashes {
		args := []interface{}{"NULL", "NULL"}
		if len(fields) > 0 {
			args = make([]interface{}, 0, len(fields)*2)
			for k, v := range fields {
				args = append(args, k, v)
			}
		}
		if err := client.HSet(ctx, key, args...).Err(); err != nil {
			t.Fatalf("seeding %s: %v", key, err)
		}
	}
}

// KeyCount returns the number of keys in db.
func KeyCount(t *testing.T, db int) int {
	t.Helper()
	n, err := RedisClient(t, db).DBSize(Context(t)).Result()
	if err != nil {
		t.Fatalf("counting keys in DB %d: %v", db, err)
	}
	return int(n)
}
