package utils

import (
	"errors"
	"io"
	"testing"
)

func TestAppErrorWrapping(t *testing.T) {
	err := NewAppError("kafka.publish", "write messages", io.ErrClosedPipe)
	if err.Error() != "kafka.publish: write messages: io: read/write on closed pipe" {
		t.Fatalf("unexpected message: %s", err)
	}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected wrapped error to match")
	}
	if WrapOp("op", "msg", nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if got := NewAppError("board.ack", "unknown id", nil).Error(); got != "board.ack: unknown id" {
		t.Fatalf("unexpected message without cause: %s", got)
	}
}
