package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTS struct {
	out *sts.GetCallerIdentityOutput
	err error
}

func (f fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return f.out, f.err
}

func TestResolve(t *testing.T) {
	t.Parallel()

	resolver := NewAWSResolverWithClient(fakeSTS{out: &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/ci"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}})

	id, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CallerIdentity{
		Account: "123456789012",
		ARN:     "arn:aws:iam::123456789012:user/ci",
		UserID:  "AIDAEXAMPLE",
	}, id)
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	cause := errors.New("no valid credential sources")
	_, err := NewAWSResolverWithClient(fakeSTS{err: cause}).Resolve(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to get caller identity")

	_, err = NewAWSResolverWithClient(fakeSTS{}).Resolve(context.Background())
	assert.Error(t, err)

	id, err := NewAWSResolverWithClient(fakeSTS{out: &sts.GetCallerIdentityOutput{}}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CallerIdentity{}, id)
}
