package dynoitem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

type apiError struct {
	code  string
	fault smithy.ErrorFault
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return e.fault }

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"throughput exceeded", &types.ProvisionedThroughputExceededException{}, true},
		{"limit exceeded", &types.LimitExceededException{}, true},
		{"throttling", &apiError{code: "ThrottlingException", fault: smithy.FaultClient}, true},
		{"request limit", &apiError{code: "RequestLimitExceeded", fault: smithy.FaultClient}, true},
		{"internal server error", &apiError{code: "InternalServerError", fault: smithy.FaultServer}, true},
		{"service unavailable", &apiError{code: "ServiceUnavailable", fault: smithy.FaultServer}, true},
		{"other server fault", &apiError{code: "SomeFault", fault: smithy.FaultServer}, true},
		{"client fault", &apiError{code: "ValidationException", fault: smithy.FaultClient}, false},
		{"conditional check", &types.ConditionalCheckFailedException{}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Errorf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryingClientRetries(t *testing.T) {
	calls := 0
	inner := &fakeClient{
		getFunc: func(context.Context, *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			calls++
			if calls < 3 {
				return nil, &types.ProvisionedThroughputExceededException{}
			}
			return &dynamodb.GetItemOutput{}, nil
		},
	}

	client := WithRetries(inner, PausePolicy(5, 10*time.Millisecond))
	var slept []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	out, err := client.GetItem(context.Background(), &dynamodb.GetItemInput{})
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if out == nil {
		t.Fatal("Expected an output")
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
	if len(slept) != 2 {
		t.Errorf("Expected 2 pauses, got %d", len(slept))
	}
	for _, d := range slept {
		if d < 0 || d > 10*time.Millisecond {
			t.Errorf("Expected jittered pause within [0, 10ms], got %v", d)
		}
	}
}

func TestRetryingClientExhaustsPolicy(t *testing.T) {
	calls := 0
	inner := &fakeClient{
		putFunc: func(context.Context, *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			calls++
			return nil, &types.LimitExceededException{}
		},
	}

	client := WithRetries(inner, LimitPolicy(2))
	client.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := client.PutItem(context.Background(), &dynamodb.PutItemInput{})
	var limit *types.LimitExceededException
	if !errors.As(err, &limit) {
		t.Fatalf("Expected the service error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 1 attempt and 2 retries, got %d calls", calls)
	}
}

func TestRetryingClientStopsOnTerminalError(t *testing.T) {
	calls := 0
	inner := &fakeClient{
		queryFunc: func(context.Context, *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
			calls++
			return nil, &apiError{code: "ValidationException", fault: smithy.FaultClient}
		},
	}

	client := WithRetries(inner, LimitPolicy(5))
	client.sleep = func(context.Context, time.Duration) error { return nil }

	if _, err := client.Query(context.Background(), &dynamodb.QueryInput{}); err == nil {
		t.Fatal("Expected the terminal error")
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}

func TestRetryingClientHonorsContext(t *testing.T) {
	inner := &fakeClient{
		scanFunc: func(context.Context, *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
			return nil, &types.ProvisionedThroughputExceededException{}
		},
	}

	client := WithRetries(inner, PausePolicy(5, time.Millisecond))
	client.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, err := client.Scan(context.Background(), &dynamodb.ScanInput{})
	var throughput *types.ProvisionedThroughputExceededException
	if !errors.As(err, &throughput) {
		t.Errorf("Expected the last attempt's error after a canceled pause, got %v", err)
	}
}

func TestPolicyDelay(t *testing.T) {
	t.Run("limit policy never pauses", func(t *testing.T) {
		p := LimitPolicy(3)
		for attempt := 0; attempt < 3; attempt++ {
			if d := p.delay(attempt); d != 0 {
				t.Errorf("Expected no pause, got %v", d)
			}
		}
	})

	t.Run("pause policy stays within the base", func(t *testing.T) {
		p := PausePolicy(3, 20*time.Millisecond)
		for attempt := 0; attempt < 3; attempt++ {
			if d := p.delay(attempt); d < 0 || d > 20*time.Millisecond {
				t.Errorf("Expected pause within [0, 20ms], got %v", d)
			}
		}
	})

	t.Run("exponential policy doubles the ceiling", func(t *testing.T) {
		p := ExponentialPolicy(3, 10*time.Millisecond)
		if d := p.delay(2); d < 0 || d > 40*time.Millisecond {
			t.Errorf("Expected pause within [0, 40ms], got %v", d)
		}
	})
}
