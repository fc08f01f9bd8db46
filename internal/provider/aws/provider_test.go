package aws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/provider"
)

type fakeCostExplorer struct {
	pages  []*costexplorer.GetCostAndUsageOutput
	inputs []costexplorer.GetCostAndUsageInput
	err    error
}

func (f *fakeCostExplorer) GetCostAndUsage(_ context.Context, in *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.inputs = append(f.inputs, *in)
	if f.err != nil {
		return nil, f.err
	}
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

type fakeIdentity struct {
	err error
}

func (f fakeIdentity) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil
}

func group(service, cost, usage string) types.Group {
	return types.Group{
		Keys: []string{service},
		Metrics: map[string]types.MetricValue{
			metricCost:  {Amount: aws.String(cost), Unit: aws.String("USD")},
			metricUsage: {Amount: aws.String(usage), Unit: aws.String("N/A")},
		},
	}
}

func result(day string, groups ...types.Group) types.ResultByTime {
	return types.ResultByTime{
		TimePeriod: &types.DateInterval{Start: aws.String(day), End: aws.String(day)},
		Groups:     groups,
	}
}

func testConfig() config.AWSConfig {
	return config.AWSConfig{Region: "us-east-1", AccountID: "a1"}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConvertResults(t *testing.T) {
	items := ConvertResults([]types.ResultByTime{
		result("2024-01-01",
			group("Amazon Elastic Compute Cloud - Compute", "1.25", "2"),
			group("Amazon Relational Database Service", "not-a-number", "8.5"),
		),
		{TimePeriod: nil},
	}, "a1")

	require.Len(t, items, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), items[0].Date)
	assert.Equal(t, "Amazon Elastic Compute Cloud - Compute", items[0].Service)
	assert.Equal(t, 1.25, items[0].Amount)
	assert.Equal(t, 2.0, items[0].Usage)
	assert.Equal(t, "a1", items[0].AccountID)
	assert.Equal(t, 0.0, items[1].Amount, "unparseable amounts read as zero")
	assert.Equal(t, 8.5, items[1].Usage)
}

func TestGetCosts_FollowsPagination(t *testing.T) {
	ce := &fakeCostExplorer{pages: []*costexplorer.GetCostAndUsageOutput{
		{ResultsByTime: []types.ResultByTime{result("2024-01-01", group("EC2", "1", "2"))}, NextPageToken: aws.String("next")},
		{ResultsByTime: []types.ResultByTime{result("2024-01-01", group("RDS", "5", "8"))}},
	}}
	p := New(ce, fakeIdentity{}, testConfig(), discard())

	resp, err := p.GetCosts(context.Background(), provider.YesterdayRequest(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	require.Len(t, resp.Costs, 2)
	assert.Equal(t, 6.0, resp.TotalAmount)
	require.Len(t, ce.inputs, 2)
	assert.Nil(t, ce.inputs[0].NextPageToken)
	assert.Equal(t, "next", aws.ToString(ce.inputs[1].NextPageToken))
	assert.Equal(t, "2024-01-01", aws.ToString(ce.inputs[0].TimePeriod.Start))
	assert.Equal(t, "2024-01-02", aws.ToString(ce.inputs[0].TimePeriod.End))
	assert.Equal(t, []string{metricCost, metricUsage}, ce.inputs[0].Metrics)
}

func TestGetCosts_EmptyResult(t *testing.T) {
	ce := &fakeCostExplorer{pages: []*costexplorer.GetCostAndUsageOutput{{}}}
	p := New(ce, fakeIdentity{}, testConfig(), discard())

	resp, err := p.GetCosts(context.Background(), provider.YesterdayRequest(time.Now()))
	require.NoError(t, err)
	assert.Empty(t, resp.Costs)
}

func TestGetCosts_WrapsUpstreamError(t *testing.T) {
	ce := &fakeCostExplorer{err: errors.New("AccessDeniedException")}
	p := New(ce, fakeIdentity{}, testConfig(), discard())

	_, err := p.GetCosts(context.Background(), provider.YesterdayRequest(time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUpstream)
	assert.Contains(t, err.Error(), "AccessDeniedException")
	assert.Len(t, ce.inputs, 1, "billing calls are never retried")
}

func TestHealth(t *testing.T) {
	p := New(&fakeCostExplorer{}, fakeIdentity{}, testConfig(), discard())
	status := p.Health(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "123456789012", status.Details["account"])

	p = New(&fakeCostExplorer{}, fakeIdentity{err: errors.New("expired token")}, testConfig(), discard())
	status = p.Health(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Message, "expired token")
}
