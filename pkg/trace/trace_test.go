package trace

import (
	"context"
	"testing"
)

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background())
	if len(id) != 32 {
		t.Fatalf("trace id %q should be 32 hex chars", id)
	}
	if FromContext(ctx) != id {
		t.Error("trace id not stored in context")
	}

	same, again := Ensure(ctx)
	if again != id || FromContext(same) != id {
		t.Error("existing trace id should be kept")
	}
}

func TestFromContextEmpty(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Errorf("FromContext() = %q", got)
	}
}
