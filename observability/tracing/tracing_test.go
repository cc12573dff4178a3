package tracing

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointInstallsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "dposd-test"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer shutdown(context.Background())

	ctx, span := StartBlockSpan(context.Background(), 10, 1)
	defer span.End()
	if ctx == nil {
		t.Fatal("expected a derived context")
	}
}
