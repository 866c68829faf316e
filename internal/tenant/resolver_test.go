package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestStaticResolver(t *testing.T) {
	idA := uuid.New()
	idB := uuid.New()
	r := NewStaticResolver("estudio-norte:" + idA.String() + " , estudio-sur:" + idB.String())

	got, err := r.Resolve(context.Background(), "estudio-norte")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || *got != idA {
		t.Errorf("got %v, want %v", got, idA)
	}

	got, err = r.Resolve(context.Background(), "estudio-sur")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || *got != idB {
		t.Errorf("got %v, want %v", got, idB)
	}
}

func TestStaticResolverUnknownKey(t *testing.T) {
	r := NewStaticResolver("conocido:" + uuid.NewString())
	got, err := r.Resolve(context.Background(), "desconocido")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != nil {
		t.Errorf("unknown origin resolved to %v, want nil", got)
	}
}

func TestStaticResolverMalformedEntries(t *testing.T) {
	// Entries without a colon or with a bad uuid are skipped, not fatal.
	id := uuid.New()
	r := NewStaticResolver("basura,sin-uuid:no-es-uuid,ok:" + id.String())

	got, _ := r.Resolve(context.Background(), "ok")
	if got == nil || *got != id {
		t.Errorf("got %v, want %v", got, id)
	}
	if got, _ := r.Resolve(context.Background(), "sin-uuid"); got != nil {
		t.Errorf("malformed entry resolved to %v", got)
	}
}

func TestStaticResolverEmptySpec(t *testing.T) {
	r := NewStaticResolver("")
	if got, _ := r.Resolve(context.Background(), "cualquiera"); got != nil {
		t.Errorf("empty spec resolved to %v", got)
	}
}
