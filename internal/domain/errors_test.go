package domain

import (
	"context"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want FailureKind
	}{
		{nil, FailureNone},
		{fmt.Errorf("%w: searchapi key missing", ErrConfiguration), FailureConfiguration},
		{fmt.Errorf("aggregate: %w", ErrNoMatch), FailureNoMatch},
		{ErrNoData, FailureNoData},
		{ErrInvalidQuery, FailureInvalidQuery},
		{fmt.Errorf("%w: boom", ErrTransport), FailureInternal},
		{context.Canceled, FailureInternal},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q; want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecoverable(t *testing.T) {
	t.Parallel()

	if Recoverable(fmt.Errorf("wrap: %w", ErrConfiguration)) {
		t.Fatal("configuration errors must not be recoverable")
	}
	if !Recoverable(fmt.Errorf("%w: 503", ErrTransport)) {
		t.Fatal("transport errors must be recoverable")
	}
	if !Recoverable(context.DeadlineExceeded) {
		t.Fatal("timeouts must be recoverable")
	}
}

func TestReportValidate(t *testing.T) {
	t.Parallel()

	valid := Report{
		ProductName:  "Coca Cola 1.25L",
		AveragePrice: 3.65,
		HighestPrice: 3.8,
		LowestPrice:  3.5,
		Suppliers:    []Supplier{{Name: "A", Price: 3.5}, {Name: "B", Price: 3.8}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}

	empty := valid
	empty.Suppliers = nil
	if err := empty.Validate(); err == nil {
		t.Fatal("report without suppliers accepted")
	}

	unordered := valid
	unordered.AveragePrice = 4
	if err := unordered.Validate(); err == nil {
		t.Fatal("report with average above highest accepted")
	}

	negative := valid
	negative.LowestPrice = -1
	if err := negative.Validate(); err == nil {
		t.Fatal("report with negative price accepted")
	}
}
