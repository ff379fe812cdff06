package ctxutil

import (
	"context"
	"testing"
)

func TestLogFields(t *testing.T) {
	if kv := LogFields(context.Background()); kv != nil {
		t.Fatalf("no trace data: want=nil got=%v", kv)
	}

	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t-1", RequestID: "r-1"})
	kv := LogFields(ctx)
	if len(kv) != 4 || kv[1] != "t-1" || kv[3] != "r-1" {
		t.Fatalf("LogFields: got=%v", kv)
	}

	ctx = WithTraceData(context.Background(), &TraceData{RequestID: "r-2"})
	if kv := LogFields(ctx); len(kv) != 2 || kv[0] != "request_id" {
		t.Fatalf("request id only: got=%v", kv)
	}
}
