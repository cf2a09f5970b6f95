package dynoitem

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// Policy configures how a RetryingClient re-issues throttled or transiently
// failing operations. Use the constructors below for preconfigured policies.
type Policy struct {
	MaxRetries  int           // Retries after the initial attempt
	Delay       time.Duration // Base pause between attempts; zero for none
	Exponential bool          // Double the pause after each attempt
}

// LimitPolicy retries up to n times with no pause between attempts.
func LimitPolicy(n int) Policy {
	return Policy{MaxRetries: n}
}

// PausePolicy retries up to n times with a fixed pause between attempts.
func PausePolicy(n int, delay time.Duration) Policy {
	return Policy{MaxRetries: n, Delay: delay}
}

// ExponentialPolicy retries up to n times, doubling the pause after each
// attempt starting from base.
func ExponentialPolicy(n int, base time.Duration) Policy {
	return Policy{MaxRetries: n, Delay: base, Exponential: true}
}

func (p Policy) delay(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	d := p.Delay
	if p.Exponential {
		d = p.Delay << attempt
	}
	// Full jitter keeps concurrent retriers from thundering in lockstep.
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// RetryingClient decorates a DynamoDBClient, re-issuing operations whose
// errors classify as retryable under the configured policy. Errors that are
// not retryable, and codec errors, are returned immediately.
type RetryingClient struct {
	inner  DynamoDBClient
	policy Policy

	// sleep pauses between attempts; replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// WithRetries wraps client with the given retry policy.
func WithRetries(client DynamoDBClient, policy Policy) *RetryingClient {
	return &RetryingClient{
		inner:  client,
		policy: policy,
		sleep:  sleepContext,
	}
}

var _ DynamoDBClient = (*RetryingClient)(nil)

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryable reports whether err represents a transient service condition
// worth re-issuing: throughput or request limits, throttling, and server
// faults. Client faults and local errors are terminal.
func Retryable(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return true
	}
	var limit *types.LimitExceededException
	if errors.As(err, &limit) {
		return true
	}

	var api smithy.APIError
	if errors.As(err, &api) {
		switch api.ErrorCode() {
		case "ThrottlingException", "RequestLimitExceeded", "InternalServerError", "ServiceUnavailable":
			return true
		}
		return api.ErrorFault() == smithy.FaultServer
	}
	return false
}

func retryOp[T any](ctx context.Context, c *RetryingClient, op func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = op()
		if err == nil || !Retryable(err) || attempt >= c.policy.MaxRetries {
			return result, err
		}
		if serr := c.sleep(ctx, c.policy.delay(attempt)); serr != nil {
			return result, err
		}
	}
}

func (c *RetryingClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return retryOp(ctx, c, func() (*dynamodb.PutItemOutput, error) {
		return c.inner.PutItem(ctx, params, optFns...)
	})
}

func (c *RetryingClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return retryOp(ctx, c, func() (*dynamodb.GetItemOutput, error) {
		return c.inner.GetItem(ctx, params, optFns...)
	})
}

func (c *RetryingClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return retryOp(ctx, c, func() (*dynamodb.DeleteItemOutput, error) {
		return c.inner.DeleteItem(ctx, params, optFns...)
	})
}

func (c *RetryingClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return retryOp(ctx, c, func() (*dynamodb.BatchWriteItemOutput, error) {
		return c.inner.BatchWriteItem(ctx, params, optFns...)
	})
}

func (c *RetryingClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return retryOp(ctx, c, func() (*dynamodb.QueryOutput, error) {
		return c.inner.Query(ctx, params, optFns...)
	})
}

func (c *RetryingClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return retryOp(ctx, c, func() (*dynamodb.ScanOutput, error) {
		return c.inner.Scan(ctx, params, optFns...)
	})
}
