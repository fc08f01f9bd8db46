// Package aws provides the AWS Cost Explorer billing provider.
package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/costoptimizer/backend/internal/config"
	"github.com/costoptimizer/backend/internal/model"
	"github.com/costoptimizer/backend/internal/provider"
)

const (
	metricCost  = "UnblendedCost"
	metricUsage = "UsageQuantity"
)

// CostExplorerAPI is the subset of the Cost Explorer client used here.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// IdentityAPI is the subset of the STS client used for health checks.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Provider implements provider.Provider against AWS Cost Explorer.
type Provider struct {
	name         string
	region       string
	accountID    string
	timeout      time.Duration
	costExplorer CostExplorerAPI
	identity     IdentityAPI
	logger       *slog.Logger
}

// LoadConfig resolves SDK configuration from cfg: explicit keys when set,
// the default chain otherwise, and an assumed role on top when configured.
// SDK retries are disabled so each call is attempted once.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(1),
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Handle role assumption if configured
	if cfg.AssumeRoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.AssumeRoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.ExternalID != "" {
				o.ExternalID = aws.String(cfg.ExternalID)
			}
		})
		awsCfg.Credentials = aws.NewCredentialsCache(creds)
	}
	return awsCfg, nil
}

// NewProvider creates a new AWS provider from cfg.
func NewProvider(ctx context.Context, cfg config.AWSConfig, logger *slog.Logger) (*Provider, error) {
	awsCfg, err := LoadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(costexplorer.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg), cfg, logger), nil
}

// New builds a provider around existing clients.
func New(ce CostExplorerAPI, identity IdentityAPI, cfg config.AWSConfig, logger *slog.Logger) *Provider {
	return &Provider{
		name:         "aws",
		region:       cfg.Region,
		accountID:    cfg.AccountID,
		timeout:      cfg.Timeout,
		costExplorer: ce,
		identity:     identity,
		logger:       logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// Health checks that the configured credentials resolve to an identity.
func (p *Provider) Health(ctx context.Context) provider.HealthStatus {
	status := provider.HealthStatus{
		LastChecked: time.Now().UTC(),
		Details:     map[string]any{"region": p.region},
	}

	out, err := p.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		status.Message = fmt.Sprintf("AWS health check failed: %v", err)
		return status
	}

	status.Healthy = true
	status.Message = "AWS provider healthy"
	if out.Account != nil {
		status.Details["account"] = *out.Account
	}
	return status
}

// GetCosts retrieves per-service cost and usage from Cost Explorer,
// following pagination until the result set is exhausted.
func (p *Provider) GetCosts(ctx context.Context, req provider.CostRequest) (*provider.CostResponse, error) {
	p.logger.Info("fetching AWS costs",
		"start", req.StartDate.Format(model.DateLayout),
		"end", req.EndDate.Format(model.DateLayout),
		"granularity", req.Granularity,
	)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	granularity := types.GranularityDaily
	if req.Granularity == model.GranularityMonthly {
		granularity = types.GranularityMonthly
	}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(req.StartDate.Format(model.DateLayout)),
			End:   aws.String(req.EndDate.Format(model.DateLayout)),
		},
		Granularity: granularity,
		Metrics:     []string{metricCost, metricUsage},
		GroupBy: []types.GroupDefinition{{
			Type: types.GroupDefinitionTypeDimension,
			Key:  aws.String("SERVICE"),
		}},
	}

	resp := &provider.CostResponse{
		Costs:     []provider.CostItem{},
		Currency:  "USD",
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}

	for {
		output, err := p.costExplorer.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: get cost and usage: %v", provider.ErrUpstream, err)
		}

		items := ConvertResults(output.ResultsByTime, p.accountID)
		for _, item := range items {
			resp.TotalAmount += item.Amount
		}
		resp.Costs = append(resp.Costs, items...)

		if output.NextPageToken == nil || *output.NextPageToken == "" {
			break
		}
		input.NextPageToken = output.NextPageToken
	}

	p.logger.Info("fetched AWS costs", "items", len(resp.Costs), "total", resp.TotalAmount)
	return resp, nil
}

// ConvertResults flattens service-grouped results into cost items tagged
// with accountID. Amounts that fail to parse are read as zero.
func ConvertResults(results []types.ResultByTime, accountID string) []provider.CostItem {
	var items []provider.CostItem
	for _, result := range results {
		if result.TimePeriod == nil || result.TimePeriod.Start == nil {
			continue
		}
		date, err := time.Parse(model.DateLayout, *result.TimePeriod.Start)
		if err != nil {
			continue
		}

		for _, group := range result.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			items = append(items, provider.CostItem{
				Date:      date,
				Service:   group.Keys[0],
				Amount:    metricAmount(group.Metrics, metricCost),
				Usage:     metricAmount(group.Metrics, metricUsage),
				AccountID: accountID,
			})
		}
	}
	return items
}

func metricAmount(metrics map[string]types.MetricValue, key string) float64 {
	m, ok := metrics[key]
	if !ok || m.Amount == nil {
		return 0
	}
	v, err := strconv.ParseFloat(*m.Amount, 64)
	if err != nil {
		return 0
	}
	return v
}
