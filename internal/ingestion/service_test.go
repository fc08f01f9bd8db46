package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costoptimizer/backend/internal/provider"
	"github.com/costoptimizer/backend/internal/testutil"
)

type fakeProvider struct {
	items []provider.CostItem
	err   error
	reqs  []provider.CostRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Health(context.Context) provider.HealthStatus {
	return provider.HealthStatus{Healthy: true}
}

func (f *fakeProvider) GetCosts(_ context.Context, req provider.CostRequest) (*provider.CostResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.CostResponse{Costs: f.items}, nil
}

var (
	now       = time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	yesterday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestFetchYesterday_StoresNewRecords(t *testing.T) {
	p := &fakeProvider{items: []provider.CostItem{
		{Date: yesterday, Service: "EC2-Instance", Amount: 1.0, Usage: 2.0, AccountID: "a1"},
		{Date: yesterday, Service: "RDS-Storage", Amount: 5.0, Usage: 8.0, AccountID: "a1"},
	}}
	store := testutil.NewCostStore()
	svc := NewService(p, store, testutil.Logger()).WithClock(testutil.Clock(now))

	res, err := svc.FetchYesterday(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Fetched: 2, Stored: 2, Total: 6.0}, res)
	require.Len(t, p.reqs, 1)
	assert.Equal(t, yesterday, p.reqs[0].StartDate)
	assert.Equal(t, yesterday.AddDate(0, 0, 1), p.reqs[0].EndDate)

	count, _ := store.Count(context.Background())
	assert.Equal(t, 2, count)
}

func TestFetchYesterday_SkipsDuplicates(t *testing.T) {
	// GIVEN a record already stored for EC2 on the day
	store := testutil.NewCostStore(testutil.Record(yesterday, "EC2-Instance", 1.0, 2.0, "a1"))
	p := &fakeProvider{items: []provider.CostItem{
		{Date: yesterday, Service: "EC2-Instance", Amount: 9.0, Usage: 2.0, AccountID: "a1"},
		{Date: yesterday, Service: "S3", Amount: 0.5, Usage: 100, AccountID: "a1"},
		{Date: yesterday, Service: "S3", Amount: 0.5, Usage: 100, AccountID: "a1"},
	}}
	svc := NewService(p, store, testutil.Logger()).WithClock(testutil.Clock(now))

	// WHEN ingesting again
	res, err := svc.FetchYesterday(context.Background())
	require.NoError(t, err)

	// THEN only the unseen key is stored
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, store.Creates)
}

func TestFetchYesterday_EmptyResult(t *testing.T) {
	svc := NewService(&fakeProvider{}, testutil.NewCostStore(), testutil.Logger())

	res, err := svc.FetchYesterday(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Stored)
}

func TestFetchYesterday_ProviderError(t *testing.T) {
	p := &fakeProvider{err: provider.ErrUpstream}
	svc := NewService(p, testutil.NewCostStore(), testutil.Logger())

	_, err := svc.FetchYesterday(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUpstream)
}

func TestFetchYesterday_StoreError(t *testing.T) {
	store := testutil.NewCostStore()
	store.Err = errors.New("db down")
	p := &fakeProvider{items: []provider.CostItem{{Date: yesterday, Service: "EC2", AccountID: "a1"}}}
	svc := NewService(p, store, testutil.Logger())

	_, err := svc.FetchYesterday(context.Background())
	assert.EqualError(t, err, "db down")
}
