package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cases := []struct {
		cfg  Config
		want Driver
	}{
		{Config{Driver: "memory"}, DriverMemory},
		{Config{SQLitePath: filepath.Join(t.TempDir(), "a.db")}, DriverSQLite},
		{Config{Driver: " SQLite ", SQLitePath: filepath.Join(t.TempDir(), "b.db")}, DriverSQLite},
		{Config{Driver: "redis", RedisAddr: mr.Addr()}, DriverRedis},
	}
	for _, tc := range cases {
		s, err := Open(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("open %+v: %v", tc.cfg, err)
		}
		if s.Driver() != tc.want {
			t.Fatalf("driver = %s, want %s", s.Driver(), tc.want)
		}
		_ = s.Close()
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "firestore"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestCollectionFor(t *testing.T) {
	if c, ok := CollectionFor("emergency_contact"); !ok || c != EmergencyContacts {
		t.Fatalf("unexpected %q %v", c, ok)
	}
	if _, ok := CollectionFor("organism"); ok {
		t.Fatal("unknown entity must not map")
	}
}
