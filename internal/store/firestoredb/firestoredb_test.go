package firestoredb

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fsadev/suivifi/internal/store"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not found", err: status.Error(codes.NotFound, "no doc"), want: store.ErrNotFound},
		{name: "aborted", err: status.Error(codes.Aborted, "contention"), want: store.ErrConflict},
		{name: "failed precondition", err: status.Error(codes.FailedPrecondition, "missing"), want: store.ErrConflict},
		{name: "already exists", err: status.Error(codes.AlreadyExists, "dup"), want: store.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapErr(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("mapErr(%v) = %v, want %v class", tt.err, got, tt.want)
			}
		})
	}

	plain := errors.New("network down")
	if got := mapErr(plain); got != plain {
		t.Errorf("unclassified errors must pass through, got %v", got)
	}
}

func TestToFirestoreUpdates(t *testing.T) {
	updates := []store.Update{
		{Field: "compte", Value: "Courant"},
		{Field: "values", Value: store.ArrayUnion("a", "b")},
		{Field: "values", Value: store.ArrayRemove("c")},
	}
	out := toFirestoreUpdates(updates)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Path != "compte" || out[0].Value != "Courant" {
		t.Errorf("plain update mangled: %+v", out[0])
	}
	// Transform values become opaque firestore sentinels; the essential
	// property is that they are no longer our wrapper types.
	if _, ok := out[1].Value.(store.ArrayUnionValue); ok {
		t.Error("ArrayUnion wrapper leaked through")
	}
	if _, ok := out[2].Value.(store.ArrayRemoveValue); ok {
		t.Error("ArrayRemove wrapper leaked through")
	}
}

func TestToFirestoreData(t *testing.T) {
	data := map[string]any{
		"compte": "Courant",
		"values": store.ArrayUnion("a"),
	}
	out := toFirestoreData(data)
	if out["compte"] != "Courant" {
		t.Errorf("plain field mangled: %v", out["compte"])
	}
	if _, ok := out["values"].(store.ArrayUnionValue); ok {
		t.Error("ArrayUnion wrapper leaked through")
	}
}
