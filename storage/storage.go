package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

// Storage provides access to the event log, the snapshot store and the
// events queue.
type Storage struct {
	eventsTable    *aztables.Client
	snapshotsTable *aztables.Client
	queue          *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string and
// resource names. Missing configuration is a non-transient failure.
func New(connStr, eventsTable, snapshotsTable, eventsQueue string) (*Storage, error) {
	if connStr == "" || eventsTable == "" || snapshotsTable == "" || eventsQueue == "" {
		return nil, domain.NewFailure(domain.ErrInvalidArguments, false, "missing storage configuration")
	}
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, domain.WrapFailure(domain.ErrInvalidArguments, false, err, "table service client")
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	queue, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
	if err != nil {
		return nil, domain.WrapFailure(domain.ErrInvalidArguments, false, err, "queue client")
	}
	return &Storage{
		eventsTable:    svc.NewClient(eventsTable),
		snapshotsTable: svc.NewClient(snapshotsTable),
		queue:          queue,
	}, nil
}

// tableKeyReplacer maps characters Azure Table Storage forbids in
// partition/row keys to a legal separator. The mapping is deterministic, so
// sanitized idempotency keys stay idempotent.
var tableKeyReplacer = strings.NewReplacer("/", ":", "\\", ":", "#", ":", "?", ":")

func sanitizeTableKey(key string) string {
	return tableKeyReplacer.Replace(key)
}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 409
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
