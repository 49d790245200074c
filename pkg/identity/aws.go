package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CallerIdentity describes the credentials terraform will pick up from the environment
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// Resolver looks up the ambient caller identity
type Resolver interface {
	Resolve(ctx context.Context) (CallerIdentity, error)
}

// STSAPI is the subset of the STS client used here
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSResolver resolves the identity with STS
type AWSResolver struct {
	client STSAPI
}

// NewAWSResolver loads the default AWS configuration chain
func NewAWSResolver(ctx context.Context) (*AWSResolver, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewAWSResolverWithClient(sts.NewFromConfig(cfg)), nil
}

// NewAWSResolverWithClient creates a resolver around an existing client
func NewAWSResolverWithClient(client STSAPI) *AWSResolver {
	return &AWSResolver{client: client}
}

// Resolve calls sts:GetCallerIdentity
func (r *AWSResolver) Resolve(ctx context.Context) (CallerIdentity, error) {
	out, err := r.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("failed to get caller identity: %w", err)
	}
	if out == nil {
		return CallerIdentity{}, errors.New("empty caller identity response")
	}
	return CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
