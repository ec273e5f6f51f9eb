package storage

import (
	"errors"
	"fmt"
	"testing"
)

// plainDB hides the Batcher implementation of MemoryDB.
type plainDB struct{ DB }

func TestPrefixDB_Scoping(t *testing.T) {
	inner := NewMemory()
	accounts := NewPrefixDB(inner, []byte("t/accounts/"))
	tokens := NewPrefixDB(inner, []byte("t/tokens/"))

	if err := accounts.Put([]byte("row"), []byte("alice")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tokens.Put([]byte("row"), []byte("usdc")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := accounts.Get([]byte("row"))
	if err != nil || string(got) != "alice" {
		t.Fatalf("accounts.Get = %q, %v", got, err)
	}
	raw, err := inner.Get([]byte("t/tokens/row"))
	if err != nil || string(raw) != "usdc" {
		t.Fatalf("inner.Get = %q, %v", raw, err)
	}

	if err := accounts.Delete([]byte("row")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := accounts.Has([]byte("row")); ok {
		t.Error("accounts row survived Delete")
	}
	if ok, _ := tokens.Has([]byte("row")); !ok {
		t.Error("Delete leaked into another scope")
	}
	if _, err := accounts.Get([]byte("row")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestPrefixDB_ForEach(t *testing.T) {
	db := NewPrefixDB(NewMemory(), []byte("t/history/"))
	for _, k := range []string{"main/b", "main/a", "dev/c"} {
		db.Put([]byte(k), []byte("v"))
	}

	var keys []string
	err := db.ForEach([]byte("main/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if fmt.Sprint(keys) != "[main/a main/b]" {
		t.Errorf("ForEach keys = %v, want [main/a main/b]", keys)
	}

	stop := errors.New("stop")
	calls := 0
	err = db.ForEach(nil, func(_, _ []byte) error {
		calls++
		return stop
	})
	if err != stop || calls != 1 {
		t.Errorf("ForEach stop: err=%v calls=%d", err, calls)
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	for name, inner := range map[string]DB{
		"batcher": NewMemory(),
		"serial":  plainDB{NewMemory()},
	} {
		t.Run(name, func(t *testing.T) {
			a := NewPrefixDB(inner, []byte("a/"))
			b := NewPrefixDB(inner, []byte("b/"))
			for i := 0; i < 3; i++ {
				a.Put([]byte(fmt.Sprintf("k%d", i)), []byte("v"))
			}
			b.Put([]byte("k0"), []byte("keep"))

			if err := a.DeleteAll(); err != nil {
				t.Fatalf("DeleteAll: %v", err)
			}
			n := 0
			a.ForEach(nil, func(_, _ []byte) error { n++; return nil })
			if n != 0 {
				t.Errorf("%d keys left after DeleteAll", n)
			}
			if got, err := b.Get([]byte("k0")); err != nil || string(got) != "keep" {
				t.Errorf("other scope = %q, %v", got, err)
			}
			if err := a.DeleteAll(); err != nil {
				t.Errorf("DeleteAll on empty scope: %v", err)
			}
		})
	}
}

func TestPrefixDB_BatchCommit(t *testing.T) {
	for name, inner := range map[string]DB{
		"batcher": NewMemory(),
		"serial":  plainDB{NewMemory()},
	} {
		t.Run(name, func(t *testing.T) {
			db := NewPrefixDB(inner, []byte("s/"))
			db.Put([]byte("old"), []byte("x"))

			batch := db.NewBatch()
			batch.Delete([]byte("old"))
			batch.Put([]byte("new"), []byte("y"))
			if ok, _ := db.Has([]byte("new")); ok {
				t.Fatal("batch applied before Commit")
			}
			if err := batch.Commit(); err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if ok, _ := db.Has([]byte("old")); ok {
				t.Error("old key survived batch delete")
			}
			if got, _ := inner.Get([]byte("s/new")); string(got) != "y" {
				t.Errorf("inner s/new = %q, want y", got)
			}
		})
	}
}

func TestPrefixDB_CloseLeavesInnerOpen(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("x/"))
	db.Put([]byte("key"), []byte("val"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, err := inner.Get([]byte("x/key")); err != nil || string(got) != "val" {
		t.Fatalf("inner.Get after Close = %q, %v", got, err)
	}
}
