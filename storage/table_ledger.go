package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"github.com/dmachibya/faithexercises-api/domain"
)

type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(listOptions *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// TableLedger keeps ledger entries in Azure Table Storage. Entries are
// partitioned by user; the row key is task|period|period key, so the
// service's key uniqueness rejects duplicate completions.
type TableLedger struct {
	table tableClient
}

// NewTableLedger creates a ledger on the given table.
func NewTableLedger(connStr, table string) (*TableLedger, error) {
	opts := aztables.ClientOptions{
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
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableLedger{table: svc.NewClient(table)}, nil
}

type progressEntity struct {
	aztables.Entity
	TaskID    string `json:"TaskID"`
	Period    string `json:"Period"`
	PeriodKey string `json:"PeriodKey"`
	DoneAt    string `json:"DoneAt"`
}

func rowKey(taskID int64, p domain.Period, key string) string {
	return strconv.FormatInt(taskID, 10) + "|" + string(p) + "|" + key
}

// taskRowFilter matches every row key of taskID. '}' sorts right after '|'.
func taskRowFilter(taskID int64) string {
	id := strconv.FormatInt(taskID, 10)
	return "RowKey ge '" + id + "|' and RowKey lt '" + id + "}'"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

func (l *TableLedger) HasEntry(ctx context.Context, userID string, taskID int64, p domain.Period, key string) (bool, error) {
	_, err := l.table.GetEntity(ctx, userID, rowKey(taskID, p, key), nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("lookup progress: %w", err)
	}
	return true, nil
}

func (l *TableLedger) InsertEntry(ctx context.Context, e domain.ProgressEntry) error {
	ent := progressEntity{
		Entity:    aztables.Entity{PartitionKey: e.UserID, RowKey: rowKey(e.TaskID, e.Period, e.PeriodKey)},
		TaskID:    strconv.FormatInt(e.TaskID, 10),
		Period:    string(e.Period),
		PeriodKey: e.PeriodKey,
		DoneAt:    formatTime(e.DoneAt),
	}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return err
	}
	if _, err := l.table.AddEntity(ctx, payload, nil); err != nil {
		if statusCode(err) == http.StatusConflict {
			return fmt.Errorf("insert progress: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert progress: %w", err)
	}
	return nil
}

func (l *TableLedger) DeleteEntry(ctx context.Context, userID string, taskID int64, p domain.Period, key string) (bool, error) {
	if _, err := l.table.DeleteEntity(ctx, userID, rowKey(taskID, p, key), nil); err != nil {
		if statusCode(err) == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("delete progress: %w", err)
	}
	return true, nil
}

func (l *TableLedger) CompletionTimes(ctx context.Context, userID string, taskIDs []int64) ([]time.Time, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		wanted[strconv.FormatInt(id, 10)] = struct{}{}
	}
	var times []time.Time
	err := l.list(ctx, "PartitionKey eq "+quote(userID), 0, func(ent progressEntity) error {
		if _, ok := wanted[ent.TaskID]; ok {
			times = append(times, parseTime(ent.DoneAt))
		}
		return nil
	})
	return times, err
}

// HasProgress reports whether any user completed the task.
func (l *TableLedger) HasProgress(ctx context.Context, taskID int64) (bool, error) {
	found := false
	err := l.list(ctx, taskRowFilter(taskID), 1, func(progressEntity) error {
		found = true
		return nil
	})
	return found, err
}

// PurgeTask removes every ledger entry of the task.
func (l *TableLedger) PurgeTask(ctx context.Context, taskID int64) error {
	var keys []aztables.Entity
	if err := l.list(ctx, taskRowFilter(taskID), 0, func(ent progressEntity) error {
		keys = append(keys, ent.Entity)
		return nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := l.table.DeleteEntity(ctx, k.PartitionKey, k.RowKey, nil); err != nil && statusCode(err) != http.StatusNotFound {
			return fmt.Errorf("purge progress of task %d: %w", taskID, err)
		}
	}
	return nil
}

// ForEachEntry calls fn for every ledger entry.
func (l *TableLedger) ForEachEntry(ctx context.Context, fn func(domain.ProgressEntry) error) error {
	return l.list(ctx, "", 0, func(ent progressEntity) error {
		taskID, err := strconv.ParseInt(ent.TaskID, 10, 64)
		if err != nil {
			return fmt.Errorf("decode progress %s/%s: %w", ent.PartitionKey, ent.RowKey, err)
		}
		return fn(domain.ProgressEntry{
			UserID:    ent.PartitionKey,
			TaskID:    taskID,
			Period:    domain.Period(ent.Period),
			PeriodKey: ent.PeriodKey,
			DoneAt:    parseTime(ent.DoneAt),
		})
	})
}

func (l *TableLedger) list(ctx context.Context, filter string, top int32, fn func(progressEntity) error) error {
	opts := &aztables.ListEntitiesOptions{}
	if filter != "" {
		opts.Filter = &filter
	}
	if top > 0 {
		opts.Top = &top
	}
	pager := l.table.NewListEntitiesPager(opts)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list progress: %w", err)
		}
		for _, raw := range resp.Entities {
			var ent progressEntity
			if err := sonic.Unmarshal(raw, &ent); err != nil {
				return err
			}
			if err := fn(ent); err != nil {
				return err
			}
			if top > 0 {
				return nil
			}
		}
	}
	return nil
}
